// Package stream broadcasts encoded instance rows to websocket clients.
//
// Each frame is one binary message:
//
//	u64 frame | u16 refs | refs × (u16 name length | name | u32 rows | rows × RowStride)
//
// all little-endian, rows as written by systems.AppendRows.
package stream

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pthm-cable/sparks/systems"
)

// ErrShortFrame is returned when a message ends before its declared size.
var ErrShortFrame = errors.New("stream: short frame")

// RefRows is the encoded output of one ParticleRef.
type RefRows struct {
	Name string
	Rows []systems.InstanceRow
}

// Frame is a decoded message.
type Frame struct {
	Number uint64
	Refs   []RefRows
}

// AppendFrame appends the encoding of refs for frame to dst.
func AppendFrame(dst []byte, frame uint64, refs []RefRows) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, frame)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(refs)))
	for _, r := range refs {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(len(r.Name)))
		dst = append(dst, r.Name...)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(r.Rows)))
		dst = systems.AppendRows(dst, r.Rows)
	}
	return dst
}

// DecodeFrame parses a message written by AppendFrame.
func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	if len(b) < 10 {
		return f, ErrShortFrame
	}
	f.Number = binary.LittleEndian.Uint64(b)
	n := int(binary.LittleEndian.Uint16(b[8:]))
	b = b[10:]

	f.Refs = make([]RefRows, 0, n)
	for i := 0; i < n; i++ {
		if len(b) < 2 {
			return f, fmt.Errorf("ref %d: %w", i, ErrShortFrame)
		}
		nameLen := int(binary.LittleEndian.Uint16(b))
		b = b[2:]
		if len(b) < nameLen+4 {
			return f, fmt.Errorf("ref %d: %w", i, ErrShortFrame)
		}
		ref := RefRows{Name: string(b[:nameLen])}
		rows := int(binary.LittleEndian.Uint32(b[nameLen:]))
		b = b[nameLen+4:]
		if len(b) < rows*systems.RowStride {
			return f, fmt.Errorf("ref %q: %w", ref.Name, ErrShortFrame)
		}
		ref.Rows = make([]systems.InstanceRow, rows)
		for j := range ref.Rows {
			row, err := systems.DecodeRow(b[j*systems.RowStride:])
			if err != nil {
				return f, err
			}
			ref.Rows[j] = row
		}
		b = b[rows*systems.RowStride:]
		f.Refs = append(f.Refs, ref)
	}
	return f, nil
}
