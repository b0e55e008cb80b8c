package engine

import (
	"encoding/json"
	"image"
)

// DrawCommand represents a single drawing operation for a frontend or the exporter to execute.
// The receiver executes them in order on a Canvas2D-like context.
type DrawCommand struct {
	Op          string      `json:"op"`                    // Operation: "path", "image", "save", "restore"
	ObjectID    string      `json:"objectId,omitempty"`    // For hit correlation
	Transform   []float64   `json:"transform,omitempty"`   // [a, b, c, d, e, f] viewport * object matrix
	Path        Path        `json:"path,omitempty"`        // Path data for "path" ops
	Stroke      string      `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64     `json:"strokeWidth,omitempty"` // Stroke width before transform
	Source      string      `json:"src,omitempty"`         // Image URL
	ImageWidth  float64     `json:"imageWidth,omitempty"`  // Image natural width
	ImageHeight float64     `json:"imageHeight,omitempty"` // Image natural height
	Selected    bool        `json:"selected,omitempty"`
	Image       image.Image `json:"-"` // Decoded pixels for in-process rasterizers
}

// Matrix returns the command transform, or Identity if it has none.
func (c DrawCommand) Matrix() Matrix2D {
	if len(c.Transform) != 6 {
		return Identity()
	}
	var m Matrix2D
	copy(m[:], c.Transform)
	return m
}

// Render compiles the scene into draw commands in painter's order (back to front).
// It does not mutate the graph; calling it repeatedly yields identical output.
func (g *Graph) Render() []DrawCommand {
	view := g.projector.Matrix()
	selected := make(map[string]bool, len(g.selection))
	for _, id := range g.selection {
		selected[id] = true
	}

	commands := make([]DrawCommand, 0, len(g.objects))
	for _, o := range g.objects {
		compileObject(o, view, selected, &commands)
	}
	return commands
}

// compileObject recursively generates draw commands for an object and its children.
func compileObject(o *SceneObject, parent Matrix2D, selected map[string]bool, commands *[]DrawCommand) {
	if o == nil {
		return
	}
	world := parent.Multiply(o.Transform())

	switch o.Kind {
	case KindImage:
		*commands = append(*commands, DrawCommand{
			Op:          "image",
			ObjectID:    o.ID,
			Transform:   world.ToSlice(),
			Source:      o.Source,
			ImageWidth:  o.Size.X,
			ImageHeight: o.Size.Y,
			Selected:    selected[o.ID],
			Image:       o.Image,
		})
	case KindPath:
		if len(o.Path) == 0 {
			return
		}
		*commands = append(*commands, DrawCommand{
			Op:          "path",
			ObjectID:    o.ID,
			Transform:   world.ToSlice(),
			Path:        o.Path.Clone(),
			Stroke:      o.Stroke,
			StrokeWidth: o.StrokeWidth,
			Selected:    selected[o.ID],
		})
	case KindGroup:
		*commands = append(*commands, DrawCommand{Op: "save", ObjectID: o.ID, Selected: selected[o.ID]})
		for _, child := range o.Children {
			compileObject(child, world, selected, commands)
		}
		*commands = append(*commands, DrawCommand{Op: "restore", ObjectID: o.ID})
	}
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
