package game

import (
	"github.com/go-gl/mathgl/mgl32"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sparks/systems"
)

func vec3(v []float64) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

// rowPosition returns the translation column of an encoded row.
func rowPosition(r systems.InstanceRow) rl.Vector3 {
	return rl.Vector3{X: r.X.W(), Y: r.Y.W(), Z: r.Z.W()}
}

// rowAxis returns column i of the row's 3x3 linear part.
func rowAxis(r systems.InstanceRow, i int) rl.Vector3 {
	return rl.Vector3{X: r.X[i], Y: r.Y[i], Z: r.Z[i]}
}

func rowColor(r systems.InstanceRow) rl.Color {
	c := r.Color
	return rl.Color{R: unit8(c.X()), G: unit8(c.Y()), B: unit8(c.Z()), A: unit8(c.W())}
}

func unit8(f float32) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(f*255 + 0.5)
}

func toRL(v mgl32.Vec3) rl.Vector3 {
	return rl.Vector3{X: v.X(), Y: v.Y(), Z: v.Z()}
}
