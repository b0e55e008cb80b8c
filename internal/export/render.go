// Package export rasterizes the scene into a downloadable PNG.
package export

import (
	"bytes"
	"fmt"

	"github.com/gogpu/gg"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/engine"
)

// DefaultMultiplier is the export resolution relative to the viewport.
const DefaultMultiplier = 3

// Renderer draws compiled draw commands with gg.
type Renderer struct {
	Multiplier int
}

// Render draws cmds onto a (width·m)×(height·m) canvas. The caller must Close the context.
func (r Renderer) Render(cmds []engine.DrawCommand, width, height int) (*gg.Context, error) {
	m := r.Multiplier
	if m <= 0 {
		m = DefaultMultiplier
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render: invalid size %dx%d", width, height)
	}

	dc := gg.NewContext(width*m, height*m)
	dc.Scale(float64(m), float64(m))
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	for _, cmd := range cmds {
		switch cmd.Op {
		case "path":
			if err := strokePath(dc, cmd); err != nil {
				dc.Close()
				return nil, fmt.Errorf("render %s: %w", cmd.ObjectID, err)
			}
		case "image":
			drawImage(dc, cmd)
		}
	}
	return dc, nil
}

// RenderPNG renders cmds and encodes the result.
func (r Renderer) RenderPNG(cmds []engine.DrawCommand, width, height int) ([]byte, error) {
	dc, err := r.Render(cmds, width, height)
	if err != nil {
		return nil, err
	}
	defer dc.Close()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func strokePath(dc *gg.Context, cmd engine.DrawCommand) error {
	world := cmd.Matrix()
	pt := func(x, y float64) (float64, float64) {
		p := world.Apply(vec(x, y))
		return p.X, p.Y
	}

	for _, c := range cmd.Path {
		if !c.Valid() {
			continue
		}
		a := c.Args
		switch c.Op {
		case engine.OpMove:
			dc.MoveTo(pt(a[0], a[1]))
		case engine.OpLine:
			dc.LineTo(pt(a[0], a[1]))
		case engine.OpQuad:
			cx, cy := pt(a[0], a[1])
			x, y := pt(a[2], a[3])
			dc.QuadraticTo(cx, cy, x, y)
		case engine.OpCubic:
			c1x, c1y := pt(a[0], a[1])
			c2x, c2y := pt(a[2], a[3])
			x, y := pt(a[4], a[5])
			dc.CubicTo(c1x, c1y, c2x, c2y, x, y)
		case engine.OpClose:
			dc.ClosePath()
		}
	}

	dc.SetHexColor(cmd.Stroke)
	dc.SetLineWidth(cmd.StrokeWidth * world.ScaleFactor())
	return dc.Stroke()
}

func drawImage(dc *gg.Context, cmd engine.DrawCommand) {
	if cmd.Image == nil || cmd.ImageWidth <= 0 || cmd.ImageHeight <= 0 {
		return
	}
	world := cmd.Matrix()
	origin := world.Apply(vec(0, 0))
	scale := world.ScaleFactor()

	dc.DrawImageEx(gg.ImageBufFromImage(cmd.Image), gg.DrawImageOptions{
		X:             origin.X,
		Y:             origin.Y,
		DstWidth:      cmd.ImageWidth * scale,
		DstHeight:     cmd.ImageHeight * scale,
		Interpolation: gg.InterpBilinear,
		Opacity:       1,
	})
}

func vec(x, y float64) r2.Vec { return r2.Vec{X: x, Y: y} }
