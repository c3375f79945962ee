package systems

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/sparks/components"
	"github.com/pthm-cable/sparks/particle"
)

// RowStride is the encoded size of one InstanceRow in bytes.
const RowStride = 80

// InstanceRow is the per-instance record consumed by instanced renderers.
// X, Y and Z are the rows of the 3x4 world transform.
type InstanceRow struct {
	X, Y, Z  mgl32.Vec4
	ID       uint32
	Lifetime float32
	Seed     float32
	Fac      float32
	Color    mgl32.Vec4
}

// EncodePolicy is how one view reads a node.
type EncodePolicy struct {
	// Billboard replaces each particle's rotation with BillboardRotation,
	// keeping translation and scale.
	Billboard         bool
	BillboardRotation mgl32.Quat
	// Tint, if set, overrides every particle's color.
	Tint *components.Color
}

// Encode appends one row per live particle of n to dst. It never mutates
// the node and fails with ErrNodeBusy while the node is ticking.
func Encode(n *Node, policy EncodePolicy, dst []InstanceRow) ([]InstanceRow, error) {
	if n.State() == Ticking {
		return dst, fmt.Errorf("encode %q: %w", n.name, ErrNodeBusy)
	}
	view := n.View()
	for i := 0; i < view.Len(); i++ {
		p := view.At(i)
		dst = append(dst, encodeRow(p, n.place(p.Transform()), policy))
	}
	return dst, nil
}

func encodeRow(p particle.Particle, t components.Transform, policy EncodePolicy) InstanceRow {
	if policy.Billboard {
		t.Rotation = policy.BillboardRotation
	}
	color := p.Color()
	if policy.Tint != nil {
		color = *policy.Tint
	}
	core := p.Core()
	rows := t.Rows()
	return InstanceRow{
		X:        rows[0],
		Y:        rows[1],
		Z:        rows[2],
		ID:       core.ID,
		Lifetime: core.Lifetime,
		Seed:     core.Seed,
		Fac:      p.Fac(),
		Color:    color.Vec4(),
	}
}

// AppendRows serializes rows little-endian, RowStride bytes each.
func AppendRows(dst []byte, rows []InstanceRow) []byte {
	for i := range rows {
		r := &rows[i]
		dst = appendVec4(dst, r.X)
		dst = appendVec4(dst, r.Y)
		dst = appendVec4(dst, r.Z)
		dst = binary.LittleEndian.AppendUint32(dst, r.ID)
		dst = appendFloat(dst, r.Lifetime)
		dst = appendFloat(dst, r.Seed)
		dst = appendFloat(dst, r.Fac)
		dst = appendVec4(dst, r.Color)
	}
	return dst
}

// DecodeRow reads one row written by AppendRows.
func DecodeRow(b []byte) (InstanceRow, error) {
	if len(b) < RowStride {
		return InstanceRow{}, fmt.Errorf("decode row: need %d bytes, have %d", RowStride, len(b))
	}
	var r InstanceRow
	r.X, b = readVec4(b)
	r.Y, b = readVec4(b)
	r.Z, b = readVec4(b)
	r.ID = binary.LittleEndian.Uint32(b)
	b = b[4:]
	r.Lifetime, b = readFloat(b)
	r.Seed, b = readFloat(b)
	r.Fac, b = readFloat(b)
	r.Color, _ = readVec4(b)
	return r, nil
}

func appendFloat(dst []byte, f float32) []byte {
	return binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
}

func appendVec4(dst []byte, v mgl32.Vec4) []byte {
	for _, f := range v {
		dst = appendFloat(dst, f)
	}
	return dst
}

func readFloat(b []byte) (float32, []byte) {
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), b[4:]
}

func readVec4(b []byte) (mgl32.Vec4, []byte) {
	var v mgl32.Vec4
	for i := range v {
		v[i], b = readFloat(b)
	}
	return v, b
}

// ParticleRef is a named view of another node's particles. It holds only
// a handle, so the target is looked up again on every Resolve and several
// refs can read one node with different policies.
type ParticleRef struct {
	Name   string
	Target ecs.Entity
	Policy EncodePolicy
}

// Resolve encodes the target's particles into dst. A target that no
// longer exists yields ErrParentMissing.
func (r ParticleRef) Resolve(sim *Simulation, dst []InstanceRow) ([]InstanceRow, error) {
	n, ok := sim.Node(r.Target)
	if !ok {
		return dst, fmt.Errorf("resolve %q: %w", r.Name, ErrParentMissing)
	}
	return Encode(n, r.Policy, dst)
}

// Bake builds n particles of kind once and encodes them without ever
// updating them, for static populations. Seeds come from rng.
func Bake[T any, P particle.Ptr[T]](kind particle.Kind[T], n int, rng *rand.Rand, policy EncodePolicy) []InstanceRow {
	rows := make([]InstanceRow, 0, n)
	for i := 0; i < n; i++ {
		seed := rng.Float32()
		p := kind.Build(seed)
		pp := P(&p)
		core := pp.Core()
		core.ID = uint32(i + 1)
		core.Seed = seed
		rows = append(rows, encodeRow(pp, pp.Transform(), policy))
	}
	return rows
}
