// Package camera provides an orbit camera for the particle viewer and the
// camera-facing rotation used by billboarded particle nodes.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sparks/components"
)

var worldUp = mgl32.Vec3{0, 1, 0}

// Camera orbits a target point at a fixed height.
type Camera struct {
	// Target is the point the camera looks at.
	Target mgl32.Vec3

	// Distance is the horizontal orbit radius, Height the eye elevation
	// above the target.
	Distance, Height float32

	// Speed is the orbit rate in radians per second.
	Speed float32

	// Angle is the current orbit angle in radians, kept in [0, 2π).
	Angle float32

	// Distance constraints
	MinDistance, MaxDistance float32

	// FovY is the vertical field of view in degrees.
	FovY float32

	initDistance, initHeight float32
}

// New creates a camera orbiting the origin.
func New(distance, height, speed float32) *Camera {
	if distance <= 0 {
		distance = 1
	}
	return &Camera{
		Distance:     distance,
		Height:       height,
		Speed:        speed,
		MinDistance:  distance / 8,
		MaxDistance:  distance * 8,
		FovY:         45,
		initDistance: distance,
		initHeight:   height,
	}
}

// Update advances the orbit by dt seconds.
func (c *Camera) Update(dt float32) {
	if dt <= 0 {
		return
	}
	c.Angle = wrapAngle(c.Angle + c.Speed*dt)
}

// Position returns the eye position in world space.
func (c *Camera) Position() mgl32.Vec3 {
	s, co := math.Sincos(float64(c.Angle))
	return c.Target.Add(mgl32.Vec3{
		float32(s) * c.Distance,
		c.Height,
		float32(co) * c.Distance,
	})
}

// Rotation returns the camera's world rotation, with its forward axis
// pointing at the target.
func (c *Camera) Rotation() mgl32.Quat {
	dir := c.Target.Sub(c.Position())
	return components.Identity().LookingTo(dir, worldUp).Rotation
}

// Transform returns the camera's world transform.
func (c *Camera) Transform() components.Transform {
	return components.FromTranslation(c.Position()).WithRotation(c.Rotation())
}

// Billboard returns the rotation that turns particle quads towards this
// camera.
func (c *Camera) Billboard() mgl32.Quat {
	return BillboardRotation(c.Rotation())
}

// SetDistance sets the orbit radius, clamped to min/max.
func (c *Camera) SetDistance(d float32) {
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
}

// ZoomBy divides the orbit radius by factor; factors above 1 move closer.
func (c *Camera) ZoomBy(factor float32) {
	if factor <= 0 {
		return
	}
	c.SetDistance(c.Distance / factor)
}

// Reset returns the camera to its initial orbit.
func (c *Camera) Reset() {
	c.Angle = 0
	c.Distance = c.initDistance
	c.Height = c.initHeight
}

// BillboardRotation computes a rotation whose Z column is the camera's
// forward axis seen from the camera's inverse rotation, with world up kept
// as close to vertical as possible.
func BillboardRotation(cam mgl32.Quat) mgl32.Quat {
	fwd := cam.Conjugate().Rotate(mgl32.Vec3{0, 0, -1})

	right := worldUp.Cross(fwd)
	if right.Len() < 1e-6 {
		// looking straight up or down
		right = mgl32.Vec3{1, 0, 0}
	} else {
		right = right.Normalize()
	}
	up := fwd.Cross(right)

	m := mgl32.Mat3FromCols(right, up, fwd)
	return mgl32.Mat4ToQuat(m.Mat4()).Normalize()
}

func wrapAngle(a float32) float32 {
	const tau = 2 * math.Pi
	r := float32(math.Mod(float64(a), tau))
	if r < 0 {
		r += tau
	}
	return r
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
