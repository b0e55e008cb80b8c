//go:build js && wasm

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"syscall/js"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/asset"
	"github.com/tarkov-debrief/debrief/internal/engine"
	"github.com/tarkov-debrief/debrief/internal/logging"
	"github.com/tarkov-debrief/debrief/internal/session"
	"github.com/tarkov-debrief/debrief/internal/typeid"
)

var sess *session.Session

func main() {
	logging.Setup("info", "text")

	cfg := session.DefaultConfig()
	// Assets come from the page origin; there is no local asset directory.
	if loc := js.Global().Get("location"); loc.Truthy() {
		cfg.AssetBaseURL = strings.TrimRight(loc.Get("origin").String(), "/") + "/assets"
	}

	var err error
	sess, err = session.New(typeid.NewSessionID(), cfg, asset.NewLoader("", nil), nil, slog.Default())
	if err != nil {
		slog.Error("create session", "error", err)
		os.Exit(1)
	}

	// Create the engine API object
	debriefEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	debriefEngine.Set("selectTool", js.FuncOf(selectTool))
	debriefEngine.Set("setColor", js.FuncOf(setColor))
	debriefEngine.Set("undo", js.FuncOf(undo))
	debriefEngine.Set("redo", js.FuncOf(redo))
	debriefEngine.Set("save", js.FuncOf(save))
	debriefEngine.Set("placeMarkerFromAsset", js.FuncOf(placeMarkerFromAsset))
	debriefEngine.Set("selectMarker", js.FuncOf(selectMarker))
	debriefEngine.Set("loadMap", js.FuncOf(loadMap))
	debriefEngine.Set("loadBackground", js.FuncOf(loadBackground))
	debriefEngine.Set("pointerDown", js.FuncOf(pointerDown))
	debriefEngine.Set("pointerMove", js.FuncOf(pointerMove))
	debriefEngine.Set("pointerUp", js.FuncOf(pointerUp))
	debriefEngine.Set("wheel", js.FuncOf(wheel))
	debriefEngine.Set("keyDown", js.FuncOf(keyDown))
	debriefEngine.Set("keyUp", js.FuncOf(keyUp))
	debriefEngine.Set("resize", js.FuncOf(resize))
	debriefEngine.Set("onRender", js.FuncOf(onRender))

	// --- Queries (frontend ← backend) ---
	debriefEngine.Set("render", js.FuncOf(render))
	debriefEngine.Set("getState", js.FuncOf(getState))

	// Register on global scope
	js.Global().Set("debriefEngine", debriefEngine)

	// Signal that WASM is ready
	js.Global().Set("debriefWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() js.Value {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(err error) js.Value {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func result(err error) interface{} {
	if err != nil {
		return fail(err)
	}
	return ok()
}

// promise runs fn off the JS event loop. Asset fetches go through the
// browser's fetch, which cannot complete while a callback is blocking.
func promise(fn func() (interface{}, error)) js.Value {
	handler := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolve, reject := args[0], args[1]
		go func() {
			v, err := fn()
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(v)
		}()
		return nil
	})
	p := js.Global().Get("Promise").New(handler)
	handler.Release()
	return p
}

func stringArg(args []js.Value, i int) (string, bool) {
	if len(args) <= i || args[i].Type() != js.TypeString {
		return "", false
	}
	return args[i].String(), true
}

// pointer reads (x, y, button, modifiers). button uses DOM numbering.
func pointer(args []js.Value) (r2.Vec, engine.Button, engine.Modifiers) {
	var p r2.Vec
	if len(args) >= 2 {
		p = r2.Vec{X: args[0].Float(), Y: args[1].Float()}
	}
	button := engine.ButtonLeft
	if len(args) >= 3 && args[2].Type() == js.TypeNumber {
		button = engine.Button(args[2].Int())
	}
	var mods engine.Modifiers
	if len(args) >= 4 {
		mods = modifiers(args[3])
	}
	return p, button, mods
}

// modifiers reads altKey/ctrlKey/shiftKey/metaKey from a DOM-event-like object.
func modifiers(v js.Value) engine.Modifiers {
	if v.Type() != js.TypeObject {
		return 0
	}
	var m engine.Modifiers
	if v.Get("altKey").Truthy() {
		m |= engine.ModAlt
	}
	if v.Get("ctrlKey").Truthy() {
		m |= engine.ModCtrl
	}
	if v.Get("shiftKey").Truthy() {
		m |= engine.ModShift
	}
	if v.Get("metaKey").Truthy() {
		m |= engine.ModMeta
	}
	return m
}

// --- Command Handlers ---

func selectTool(this js.Value, args []js.Value) interface{} {
	name, okArg := stringArg(args, 0)
	if !okArg {
		return js.ValueOf(map[string]interface{}{"error": "missing tool name"})
	}
	return result(sess.SelectTool(name))
}

func setColor(this js.Value, args []js.Value) interface{} {
	hex, okArg := stringArg(args, 0)
	if !okArg {
		return js.ValueOf(map[string]interface{}{"error": "missing color"})
	}
	return result(sess.SetColor(hex))
}

func undo(this js.Value, args []js.Value) interface{} {
	changed, err := sess.Undo()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]interface{}{"changed": changed})
}

func redo(this js.Value, args []js.Value) interface{} {
	changed, err := sess.Redo()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]interface{}{"changed": changed})
}

// save resolves to {url, filename, width, height} with a PNG data URL.
func save(this js.Value, args []js.Value) interface{} {
	return promise(func() (interface{}, error) {
		sess.Wait()
		e, err := sess.Save()
		if err != nil {
			return nil, err
		}
		return js.ValueOf(map[string]interface{}{
			"url":      "data:image/png;base64," + base64.StdEncoding.EncodeToString(e.PNG),
			"filename": e.Filename,
			"width":    e.Width,
			"height":   e.Height,
		}), nil
	})
}

func placeMarkerFromAsset(this js.Value, args []js.Value) interface{} {
	url, okArg := stringArg(args, 0)
	if !okArg {
		return js.ValueOf(map[string]interface{}{"error": "missing marker url"})
	}
	return result(sess.PlaceMarkerFromAsset(url))
}

func selectMarker(this js.Value, args []js.Value) interface{} {
	id, okArg := stringArg(args, 0)
	if !okArg {
		return js.ValueOf(map[string]interface{}{"error": "missing marker id"})
	}
	return result(sess.SelectMarker(id))
}

func loadMap(this js.Value, args []js.Value) interface{} {
	id, _ := stringArg(args, 0)
	return promise(func() (interface{}, error) {
		if err := sess.LoadMap(context.Background(), id); err != nil {
			return nil, err
		}
		return ok(), nil
	})
}

func loadBackground(this js.Value, args []js.Value) interface{} {
	url, _ := stringArg(args, 0)
	return promise(func() (interface{}, error) {
		if err := sess.LoadBackground(context.Background(), url); err != nil {
			return nil, err
		}
		return ok(), nil
	})
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	sess.PointerDown(pointer(args))
	return nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	sess.PointerMove(pointer(args))
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	sess.PointerUp(pointer(args))
	return nil
}

func wheel(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return nil
	}
	sess.Wheel(r2.Vec{X: args[0].Float(), Y: args[1].Float()}, args[2].Float())
	return nil
}

func keyDown(this js.Value, args []js.Value) interface{} {
	key, okArg := stringArg(args, 0)
	if !okArg {
		return nil
	}
	var mods engine.Modifiers
	if len(args) > 1 {
		mods = modifiers(args[1])
	}
	return result(sess.KeyDown(key, mods))
}

func keyUp(this js.Value, args []js.Value) interface{} {
	key, okArg := stringArg(args, 0)
	if !okArg {
		return nil
	}
	var mods engine.Modifiers
	if len(args) > 1 {
		mods = modifiers(args[1])
	}
	sess.KeyUp(key, mods)
	return nil
}

func resize(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	return result(sess.Resize(args[0].Int(), args[1].Int()))
}

// onRender registers a callback invoked after every scene change.
func onRender(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}
	fn := args[0]
	sess.OnRender(func() { fn.Invoke() })
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	out, err := sess.RenderJSON()
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(out)
}

func getState(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(sess.State())
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}
