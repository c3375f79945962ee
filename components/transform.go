// Package components defines the value types shared by the simulation,
// the encoders and the host: transforms and colors.
package components

import "github.com/go-gl/mathgl/mgl32"

// Transform is a translation, rotation and non-uniform scale.
// Forward is -Z, up is +Y.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// FromTranslation returns an identity transform moved to v.
func FromTranslation(v mgl32.Vec3) Transform {
	t := Identity()
	t.Translation = v
	return t
}

// WithTranslation returns a copy of t with a new translation.
func (t Transform) WithTranslation(v mgl32.Vec3) Transform {
	t.Translation = v
	return t
}

// WithRotation returns a copy of t with a new rotation.
func (t Transform) WithRotation(q mgl32.Quat) Transform {
	t.Rotation = q
	return t
}

// Forward returns the local -Z axis in world space.
func (t Transform) Forward() mgl32.Vec3 {
	return t.Rotation.Rotate(mgl32.Vec3{0, 0, -1})
}

// LookingTo rotates t so that Forward points along dir.
// A zero dir, or one parallel to up, leaves the rotation unchanged.
func (t Transform) LookingTo(dir, up mgl32.Vec3) Transform {
	if dir.Len() < 1e-6 {
		return t
	}
	back := dir.Normalize().Mul(-1)
	right := up.Cross(back)
	if right.Len() < 1e-6 {
		return t
	}
	right = right.Normalize()
	up2 := back.Cross(right)
	basis := mgl32.Mat3FromCols(right, up2, back)
	t.Rotation = mgl32.Mat4ToQuat(basis.Mat4()).Normalize()
	return t
}

// Matrix returns T * R * S.
func (t Transform) Matrix() mgl32.Mat4 {
	tr := mgl32.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z())
	sc := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return tr.Mul4(t.Rotation.Mat4()).Mul4(sc)
}

// Rows returns the first three rows of Matrix, the 3x4 affine part
// consumed by instanced renderers.
func (t Transform) Rows() [3]mgl32.Vec4 {
	m := t.Matrix()
	return [3]mgl32.Vec4{m.Row(0), m.Row(1), m.Row(2)}
}

// TransformPoint maps a local point into the space t lives in.
func (t Transform) TransformPoint(p mgl32.Vec3) mgl32.Vec3 {
	return t.Translation.Add(t.Rotation.Rotate(mulElem(t.Scale, p)))
}

// Mul composes t with a child transform expressed in t's local space.
func (t Transform) Mul(child Transform) Transform {
	return Transform{
		Translation: t.TransformPoint(child.Translation),
		Rotation:    t.Rotation.Mul(child.Rotation).Normalize(),
		Scale:       mulElem(t.Scale, child.Scale),
	}
}

// ApproxEqual compares two transforms component-wise within an absolute
// tolerance eps.
func (t Transform) ApproxEqual(o Transform, eps float32) bool {
	if !Vec3Near(t.Translation, o.Translation, eps) || !Vec3Near(t.Scale, o.Scale, eps) {
		return false
	}
	// q and -q encode the same rotation
	return quatNear(t.Rotation, o.Rotation, eps) || quatNear(t.Rotation, o.Rotation.Scale(-1), eps)
}

// Vec3Near reports whether every component of a and b differs by at most
// eps. Unlike mgl32's relative comparison it behaves the same near zero.
func Vec3Near(a, b mgl32.Vec3, eps float32) bool {
	for i := range a {
		if abs32(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func quatNear(a, b mgl32.Quat, eps float32) bool {
	return abs32(a.W-b.W) <= eps && Vec3Near(a.V, b.V, eps)
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func mulElem(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
