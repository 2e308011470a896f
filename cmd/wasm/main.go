//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/invitera/invitera/backend-go/internal/document"
	"github.com/invitera/invitera/backend-go/internal/editor"
)

var core *editor.Core

func main() {
	core = editor.New(editor.Options{
		Initial: document.NewSampleDocument(),
		Role:    editor.RoleCreator,
	})

	api := js.Global().Get("Object").New()

	// --- Commands (frontend -> core) ---
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	api.Set("setRole", js.FuncOf(setRole))
	api.Set("addSlide", js.FuncOf(addSlide))
	api.Set("removeSlide", js.FuncOf(removeSlide))
	api.Set("renameSlide", js.FuncOf(renameSlide))
	api.Set("selectSlide", js.FuncOf(selectSlide))
	api.Set("addText", js.FuncOf(addText))
	api.Set("addImage", js.FuncOf(addImage))
	api.Set("editText", js.FuncOf(editText))
	api.Set("updateTextStyle", js.FuncOf(updateTextStyle))
	api.Set("commitTextEdit", js.FuncOf(commitTextEdit))
	api.Set("cancelTextEdit", js.FuncOf(cancelTextEdit))
	api.Set("selectElement", js.FuncOf(selectElement))
	api.Set("deleteElement", js.FuncOf(deleteElement))
	api.Set("beginDrag", js.FuncOf(beginDrag))
	api.Set("drag", js.FuncOf(drag))
	api.Set("endDrag", js.FuncOf(endDrag))
	api.Set("cancelDrag", js.FuncOf(cancelDrag))
	api.Set("resizeElement", js.FuncOf(resizeElement))
	api.Set("setBackground", js.FuncOf(setBackground))
	api.Set("updateBackground", js.FuncOf(updateBackground))
	api.Set("setCanvas", js.FuncOf(setCanvas))
	api.Set("setScale", js.FuncOf(setScale))
	api.Set("toggleModal", js.FuncOf(toggleModal))
	api.Set("enterPreview", js.FuncOf(enterPreview))
	api.Set("exitPreview", js.FuncOf(exitPreview))
	api.Set("undo", js.FuncOf(undo))
	api.Set("redo", js.FuncOf(redo))

	// --- Queries (frontend <- core) ---
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("getRenderPlan", js.FuncOf(getRenderPlan))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("canUndo", js.FuncOf(canUndo))
	api.Set("canRedo", js.FuncOf(canRedo))
	api.Set("isPreview", js.FuncOf(isPreview))
	api.Set("getRole", js.FuncOf(getRole))

	js.Global().Set("inviteraEditor", api)
	js.Global().Set("inviteraWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing document JSON")
	}
	loaded, err := editor.Load([]byte(args[0].String()), editor.Options{Role: core.Role()})
	if err != nil {
		return fail(err.Error())
	}
	core = loaded
	return ok()
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	core = editor.New(editor.Options{
		Initial: document.NewSampleDocument(),
		Role:    core.Role(),
	})
	return ok()
}

func setRole(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	core.SetRole(args[0].String())
	return nil
}

func addSlide(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(core.AddSlide())
}

func removeSlide(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	core.RemoveSlide(args[0].String())
	return nil
}

func renameSlide(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	core.RenameSlide(args[0].String(), args[1].String())
	return nil
}

func selectSlide(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	core.SelectSlide(args[0].String())
	return nil
}

func addText(this js.Value, args []js.Value) interface{} {
	var params editor.TextParams
	if len(args) > 0 && args[0].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[0].String()), &params); err != nil {
			return fail("invalid text params: " + err.Error())
		}
	}
	return js.ValueOf(core.AddText(params))
}

func addImage(this js.Value, args []js.Value) interface{} {
	var params editor.ImageParams
	if len(args) > 0 && args[0].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[0].String()), &params); err != nil {
			return fail("invalid image params: " + err.Error())
		}
	}
	return js.ValueOf(core.AddImage(params))
}

func editText(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	core.EditText(args[0].String(), args[1].String())
	return nil
}

func updateTextStyle(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	var style map[string]any
	if err := json.Unmarshal([]byte(args[1].String()), &style); err != nil {
		return fail("invalid style: " + err.Error())
	}
	core.UpdateTextStyle(args[0].String(), style)
	return nil
}

func commitTextEdit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	core.CommitTextEdit(args[0].String())
	return nil
}

func cancelTextEdit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	core.CancelTextEdit(args[0].String())
	return nil
}

func selectElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	core.SelectElement(args[0].String())
	return nil
}

func deleteElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	core.DeleteElement(args[0].String())
	return nil
}

func beginDrag(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(core.BeginDrag(args[0].String()))
}

func drag(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	core.Drag(args[0].Float(), args[1].Float())
	return nil
}

func endDrag(this js.Value, args []js.Value) interface{} {
	core.EndDrag()
	return nil
}

func cancelDrag(this js.Value, args []js.Value) interface{} {
	core.CancelDrag()
	return nil
}

func resizeElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return nil
	}
	core.Resize(args[0].String(), args[1].Float(), args[2].Float())
	return nil
}

func setBackground(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	var bg document.Background
	if err := json.Unmarshal([]byte(args[1].String()), &bg); err != nil {
		return fail("invalid background: " + err.Error())
	}
	core.SetBackground(args[0].String(), bg)
	return nil
}

func updateBackground(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	var patch editor.BackgroundPatch
	if err := json.Unmarshal([]byte(args[1].String()), &patch); err != nil {
		return fail("invalid background patch: " + err.Error())
	}
	core.UpdateBackground(args[0].String(), patch)
	return nil
}

func setCanvas(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	core.SetCanvas(args[0].Float(), args[1].Float())
	return nil
}

func setScale(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	core.SetScale(args[0].Float())
	return nil
}

func toggleModal(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	var value *bool
	if len(args) > 1 && args[1].Type() == js.TypeBoolean {
		v := args[1].Bool()
		value = &v
	}
	core.ToggleModal(args[0].String(), value)
	return nil
}

func enterPreview(this js.Value, args []js.Value) interface{} {
	core.EnterPreview()
	return nil
}

func exitPreview(this js.Value, args []js.Value) interface{} {
	core.ExitPreview()
	return nil
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(core.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(core.Redo())
}

// --- Query Handlers ---

func getDocument(this js.Value, args []js.Value) interface{} {
	data, err := core.Export()
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

func getRenderPlan(this js.Value, args []js.Value) interface{} {
	slideID := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		slideID = args[0].String()
	}
	plan := editor.CompileRenderPlan(core.State(), slideID)
	return js.ValueOf(editor.RenderPlanJSON(plan))
}

// hitTest(slideID, x, y) resolves a canvas click to an element id, or "".
func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf("")
	}
	id := editor.HitTest(core.State(), args[0].String(), args[1].Float(), args[2].Float())
	return js.ValueOf(id)
}

func canUndo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(core.CanUndo())
}

func canRedo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(core.CanRedo())
}

func isPreview(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(core.InPreview())
}

func getRole(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(core.Role())
}
