package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title          string
	Tick           int32
	Particles      int
	Nodes          int
	StepsPerUpdate int
	TimeScale      float32
	FPS            int32
	Paused         bool
	StreamAddr     string
	StreamClients  int
	Err            error
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Particles: %d | Nodes: %d", data.Particles, data.Nodes),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Tick: %d | Speed: %dx | Scale: %.2f | FPS: %d", data.Tick, data.StepsPerUpdate, data.TimeScale, data.FPS),
		10, 55, 16, rl.LightGray,
	)

	switch {
	case data.Err != nil:
		rl.DrawText(data.Err.Error(), 10, 75, 16, rl.Red)
	case data.Paused:
		rl.DrawText("PAUSED", 10, 75, 16, rl.Yellow)
	case data.StreamAddr != "":
		rl.DrawText(fmt.Sprintf("Streaming on %s (%d clients)", data.StreamAddr, data.StreamClients), 10, 75, 16, rl.SkyBlue)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// NodePanel lists every node with its fill level.
type NodePanel struct {
	renderer *Renderer
	width    int32
}

// NewNodePanel creates a node panel.
func NewNodePanel() *NodePanel {
	return &NodePanel{renderer: NewRenderer(), width: 300}
}

// Draw renders the panel anchored to the top right corner.
func (p *NodePanel) Draw(rows []NodeRow, screenWidth int32) {
	r := p.renderer
	padding := r.Theme.Padding
	perRow := r.Theme.LineHeight*2 + 2
	height := padding*2 + r.Theme.LineHeight*2 + int32(len(rows))*perRow

	x := screenWidth - p.width - 10
	y := int32(10)
	r.DrawPanel(x, y, p.width, height)

	y = r.DrawSectionHeader(x+padding, y+padding, "Nodes")
	for _, row := range rows {
		rl.DrawText(row.Label(), x+padding, y, r.Theme.FontSize, r.Theme.ValueColor)
		y += r.Theme.LineHeight
		y = r.DrawFillBar(x+padding, y, "fill", row.Fill, p.width-padding*2)
	}
	live, capacity := Totals(rows)
	r.DrawLabelValue(x+padding, y, "total", fmt.Sprintf("%d / %d", live, capacity))
}
