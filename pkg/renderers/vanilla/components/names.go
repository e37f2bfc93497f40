package components

import "github.com/goliatone/go-stepform/pkg/render"

// Canonical component names used by the default registry. Each matches the
// render.Control it draws.
const (
	NameInput    = string(render.ControlInput)
	NameTextarea = string(render.ControlTextarea)
	NameSelect   = string(render.ControlSelect)
	NameRadio    = string(render.ControlRadio)
	NameCheckbox = string(render.ControlCheckbox)
)
