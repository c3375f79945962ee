package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sparks/ui"
)

// frameTime returns the real time of the last frame, capped so a stalled
// window does not spin the camera.
func frameTime() float32 {
	dt := rl.GetFrameTime()
	if dt > 0.1 {
		dt = 0.1
	}
	return dt
}

// handleInput processes keyboard input.
func (g *Game) handleInput() {
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g.paused = !g.paused
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) {
		g.stepsPerUpdate = clampSteps(g.stepsPerUpdate - 1)
	}
	if rl.IsKeyPressed(rl.KeyPeriod) {
		g.stepsPerUpdate = clampSteps(g.stepsPerUpdate + 1)
	}

	if rl.IsKeyPressed(rl.KeyB) {
		g.billboard = !g.billboard
	}
	if rl.IsKeyPressed(rl.KeyT) {
		g.showTrails = !g.showTrails
	}
	if rl.IsKeyPressed(rl.KeyC) && g.controls != nil {
		g.controls.Toggle()
	}

	g.handleCameraInput()
}

// handleCameraInput processes orbit and zoom controls.
func (g *Game) handleCameraInput() {
	dt := frameTime()

	if rl.IsKeyDown(rl.KeyRight) {
		g.camera.Angle += 1.5 * dt
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		g.camera.Angle -= 1.5 * dt
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.camera.Height += 6 * dt
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.camera.Height -= 6 * dt
	}

	// Zoom controls: mouse wheel or +/- keys
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.camera.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.camera.ZoomBy(0.8)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		g.camera.Reset()
	}
}

// applyControls copies the control panel state back into the game.
func (g *Game) applyControls(s ui.ControlsState) {
	g.paused = s.Paused
	g.timeScale = s.TimeScale
	g.billboard = s.Billboard
	g.showTrails = s.Trails
	if s.ResetCamera {
		g.camera.Reset()
	}
}

func (g *Game) controlsState() ui.ControlsState {
	return ui.ControlsState{
		Paused:    g.paused,
		TimeScale: g.timeScale,
		Billboard: g.billboard,
		Trails:    g.showTrails,
	}
}
