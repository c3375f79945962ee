// Package ui draws the viewer's heads-up display and control panel.
package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sparks/systems"
)

// Theme holds UI styling constants.
type Theme struct {
	PanelBg        rl.Color
	PanelBorder    rl.Color
	SectionHeader  rl.Color
	LabelColor     rl.Color
	ValueColor     rl.Color
	BarBg          rl.Color
	BarFillLow     rl.Color
	BarFillMedium  rl.Color
	BarFillHigh    rl.Color
	Padding        int32
	LineHeight     int32
	LabelWidth     int32
	BarHeight      int32
	FontSize       int32
	HeaderFontSize int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:        rl.Color{R: 20, G: 25, B: 30, A: 240},
		PanelBorder:    rl.Color{R: 60, G: 70, B: 80, A: 255},
		SectionHeader:  rl.Yellow,
		LabelColor:     rl.LightGray,
		ValueColor:     rl.LightGray,
		BarBg:          rl.Color{R: 40, G: 40, B: 40, A: 255},
		BarFillLow:     rl.Color{R: 100, G: 200, B: 100, A: 255},
		BarFillMedium:  rl.Color{R: 200, G: 180, B: 100, A: 255},
		BarFillHigh:    rl.Color{R: 200, G: 100, B: 100, A: 255},
		Padding:        10,
		LineHeight:     16,
		LabelWidth:     70,
		BarHeight:      12,
		FontSize:       12,
		HeaderFontSize: 14,
	}
}

// NodeRow is one line of the node panel.
type NodeRow struct {
	Name     string
	Kind     string
	Live     int
	Capacity int
	Fill     float32 // Live / Capacity, 0 when capacity is 0
	Trails   int     // live plus detached trails
	Missing  bool    // parent gone at least once
}

// BuildNodeRows summarizes nodes for the node panel.
func BuildNodeRows(nodes []*systems.Node) []NodeRow {
	rows := make([]NodeRow, 0, len(nodes))
	for _, n := range nodes {
		row := NodeRow{
			Name:     n.Name(),
			Kind:     n.KindName(),
			Live:     n.Len(),
			Capacity: n.Cap(),
			Missing:  n.Stats().ParentMissing > 0,
		}
		if row.Capacity > 0 {
			row.Fill = float32(row.Live) / float32(row.Capacity)
		}
		if tr := n.Trails(); tr != nil {
			row.Trails = tr.Len() + len(tr.Detached())
		}
		rows = append(rows, row)
	}
	return rows
}

// Totals sums live particles and capacity over rows.
func Totals(rows []NodeRow) (live, capacity int) {
	for _, r := range rows {
		live += r.Live
		capacity += r.Capacity
	}
	return live, capacity
}

// Label returns the text drawn for the row.
func (r NodeRow) Label() string {
	s := fmt.Sprintf("%s (%s) %d/%d", r.Name, r.Kind, r.Live, r.Capacity)
	if r.Trails > 0 {
		s += fmt.Sprintf(" trails %d", r.Trails)
	}
	if r.Missing {
		s += " [no parent]"
	}
	return s
}
