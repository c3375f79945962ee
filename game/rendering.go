package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sparks/systems"
	"github.com/pthm-cable/sparks/ui"
)

const controlsLegend = "[Space] pause  [,/.] speed  [arrows] orbit  [wheel] zoom  [Home] reset  [B] billboard  [T] trails  [C] panel"

var (
	background = rl.Color{R: 8, G: 10, B: 18, A: 255}
	grassColor = rl.Color{R: 60, G: 120, B: 60, A: 255}
	trailColor = rl.Color{R: 255, G: 200, B: 120, A: 140}
)

// Draw renders the game.
func (g *Game) Draw() {
	g.perfCollector.RecordFrame()

	rl.BeginDrawing()
	rl.ClearBackground(background)

	rl.BeginMode3D(g.camera3D())
	rl.DrawGrid(40, 1)
	for _, b := range g.baked {
		drawBlades(b.rows)
	}
	for _, r := range g.refs {
		if r.ref.Policy.Billboard && g.billboard {
			drawQuads(r.rows)
		} else {
			drawCubes(r.rows)
		}
		if r.trails && g.showTrails {
			g.drawTrails(r)
		}
	}
	rl.EndMode3D()

	g.drawHUD()

	rl.EndDrawing()
}

func (g *Game) camera3D() rl.Camera3D {
	return rl.Camera3D{
		Position:   toRL(g.camera.Position()),
		Target:     toRL(g.camera.Target),
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       g.camera.FovY,
		Projection: rl.CameraPerspective,
	}
}

func (g *Game) drawHUD() {
	particles := 0
	for _, n := range g.nodes {
		particles += n.Len()
	}
	data := ui.HUDData{
		Title:          "Sparks",
		Tick:           g.tick,
		Particles:      particles,
		Nodes:          len(g.nodes),
		StepsPerUpdate: g.stepsPerUpdate,
		TimeScale:      g.timeScale,
		FPS:            rl.GetFPS(),
		Paused:         g.paused,
		StreamAddr:     g.streamAddr,
		Err:            g.err,
	}
	if g.stream != nil {
		data.StreamClients = g.stream.Len()
	}
	g.hud.Draw(data)
	g.hud.DrawControls(int32(rl.GetScreenHeight()), controlsLegend)
	g.nodePanel.Draw(ui.BuildNodeRows(g.nodes), int32(rl.GetScreenWidth()))
	g.applyControls(g.controls.Draw(g.controlsState()))
}

// drawCubes draws each row as a cube sized by its scale.
func drawCubes(rows []systems.InstanceRow) {
	for _, r := range rows {
		size := rl.Vector3Length(rowAxis(r, 0)) * 0.1
		rl.DrawCube(rowPosition(r), size, size, size, rowColor(r))
	}
}

// drawQuads draws each row as a quad spanned by its local X and Y axes.
func drawQuads(rows []systems.InstanceRow) {
	for _, r := range rows {
		p := rowPosition(r)
		right := rl.Vector3Scale(rowAxis(r, 0), 0.05)
		up := rl.Vector3Scale(rowAxis(r, 1), 0.05)

		a := rl.Vector3Subtract(rl.Vector3Subtract(p, right), up)
		b := rl.Vector3Subtract(rl.Vector3Add(p, right), up)
		c := rl.Vector3Add(rl.Vector3Add(p, right), up)
		d := rl.Vector3Add(rl.Vector3Subtract(p, right), up)

		color := rowColor(r)
		rl.DrawTriangle3D(a, b, c, color)
		rl.DrawTriangle3D(a, c, d, color)
		// back faces
		rl.DrawTriangle3D(a, c, b, color)
		rl.DrawTriangle3D(a, d, c, color)
	}
}

// drawBlades draws grass as lines along each blade's local Y axis.
func drawBlades(rows []systems.InstanceRow) {
	for _, r := range rows {
		p := rowPosition(r)
		rl.DrawLine3D(p, rl.Vector3Add(p, rowAxis(r, 1)), grassColor)
	}
}

// drawTrails rebuilds the trail strip of a ref's node and draws it with
// each vertex pair pushed apart across the view direction.
func (g *Game) drawTrails(r *refView) {
	n, ok := g.Node(r.node)
	if !ok {
		return
	}
	width := float32(g.cfg.Trails.Width)
	systems.BuildTrailMesh(n, &g.trailMesh, width)

	eye := g.camera.Position()
	m := &g.trailMesh
	verts := make([]rl.Vector3, len(m.Positions))
	for i, p := range m.Positions {
		view := eye.Sub(p)
		side := m.Normals[i].Cross(view)
		if side.Len() > 1e-6 {
			side = side.Normalize().Mul(m.UV1[i].X() * 0.5)
		}
		verts[i] = toRL(p.Add(side))
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := verts[m.Indices[i]], verts[m.Indices[i+1]], verts[m.Indices[i+2]]
		rl.DrawTriangle3D(a, b, c, trailColor)
		rl.DrawTriangle3D(a, c, b, trailColor)
	}
}
