package main

import "github.com/pthm-cable/sparks/systems"

// RowRecord is one encoded instance row in CSV form.
type RowRecord struct {
	Frame    int32   `csv:"frame"`
	Ref      string  `csv:"ref"`
	ID       uint32  `csv:"id"`
	Lifetime float32 `csv:"lifetime"`
	Seed     float32 `csv:"seed"`
	Fac      float32 `csv:"fac"`

	// Rows of the 3x4 world transform
	X0 float32 `csv:"x0"`
	X1 float32 `csv:"x1"`
	X2 float32 `csv:"x2"`
	X3 float32 `csv:"x3"`
	Y0 float32 `csv:"y0"`
	Y1 float32 `csv:"y1"`
	Y2 float32 `csv:"y2"`
	Y3 float32 `csv:"y3"`
	Z0 float32 `csv:"z0"`
	Z1 float32 `csv:"z1"`
	Z2 float32 `csv:"z2"`
	Z3 float32 `csv:"z3"`

	R float32 `csv:"r"`
	G float32 `csv:"g"`
	B float32 `csv:"b"`
	A float32 `csv:"a"`
}

// appendRecords converts rows of one ref at one frame.
func appendRecords(dst []RowRecord, frame int32, ref string, rows []systems.InstanceRow) []RowRecord {
	for _, r := range rows {
		dst = append(dst, RowRecord{
			Frame:    frame,
			Ref:      ref,
			ID:       r.ID,
			Lifetime: r.Lifetime,
			Seed:     r.Seed,
			Fac:      r.Fac,
			X0:       r.X[0],
			X1:       r.X[1],
			X2:       r.X[2],
			X3:       r.X[3],
			Y0:       r.Y[0],
			Y1:       r.Y[1],
			Y2:       r.Y[2],
			Y3:       r.Y[3],
			Z0:       r.Z[0],
			Z1:       r.Z[1],
			Z2:       r.Z[2],
			Z3:       r.Z[3],
			R:        r.Color[0],
			G:        r.Color[1],
			B:        r.Color[2],
			A:        r.Color[3],
		})
	}
	return dst
}

// shouldDump reports whether frame is written: every N frames, and always
// the last one.
func shouldDump(frame, last, every int) bool {
	if frame == last {
		return true
	}
	return every > 0 && frame%every == 0
}
