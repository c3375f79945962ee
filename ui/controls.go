package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Time scale slider range.
const (
	MinTimeScale float32 = 0.1
	MaxTimeScale float32 = 3
)

// ControlsState is what the controls panel edits.
type ControlsState struct {
	Paused      bool
	TimeScale   float32
	Billboard   bool
	Trails      bool
	ResetCamera bool // set for one frame when the button is pressed
}

// ControlsPanel renders the raygui control panel.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Draw renders the panel and returns the edited state.
func (c *ControlsPanel) Draw(state ControlsState) ControlsState {
	state.ResetCamera = false
	if !c.visible {
		return state
	}

	r := c.renderer
	padding := r.Theme.Padding
	rowH := float32(20)
	height := int32(rowH)*5 + padding*2 + r.Theme.LineHeight
	r.DrawPanel(c.x, c.y, c.width, height)

	x := float32(c.x + padding)
	y := float32(r.DrawSectionHeader(c.x+padding, c.y+padding, "Controls"))
	w := float32(c.width - padding*2)

	label := "Pause"
	if state.Paused {
		label = "Resume"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: rowH - 4}, label) {
		state.Paused = !state.Paused
	}
	y += rowH

	state.TimeScale = gui.SliderBar(
		rl.Rectangle{X: x + 40, Y: y, Width: w - 80, Height: rowH - 6},
		"scale", fmt.Sprintf("%.2f", state.TimeScale),
		state.TimeScale, MinTimeScale, MaxTimeScale,
	)
	y += rowH

	state.Billboard = gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 14, Height: 14}, "Billboard", state.Billboard)
	y += rowH
	state.Trails = gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 14, Height: 14}, "Trails", state.Trails)
	y += rowH

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: rowH - 4}, "Reset camera") {
		state.ResetCamera = true
	}
	return state
}
