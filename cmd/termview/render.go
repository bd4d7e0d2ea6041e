package main

import (
	"fmt"
	"slices"

	"github.com/gdamore/tcell/v2"
	"github.com/miretskiy/billiards/simulator"
)

var (
	styleDefault = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	styleWall    = styleDefault.Foreground(tcell.ColorSilver)
	styleSeam    = styleDefault.Foreground(tcell.ColorGray).Dim(true)
	styleStatus  = styleDefault.Foreground(tcell.ColorAqua)

	// One color per radius, smallest first
	radiusColors = []tcell.Color{
		tcell.ColorGreen,
		tcell.ColorYellow,
		tcell.ColorOrange,
		tcell.ColorRed,
		tcell.ColorFuchsia,
	}
)

// viewport is the interior of the border, in screen cells
type viewport struct {
	x0, y0, w, h int
}

// layout reserves row 0 for the status line and a one-cell border
func layout(screenW, screenH int) (viewport, bool) {
	v := viewport{x0: 1, y0: 2, w: screenW - 2, h: screenH - 3}
	return v, v.w > 0 && v.h > 0
}

// project maps box coordinates onto the viewport. x is the walled axis and
// runs left to right; y is periodic and runs top to bottom.
func (v viewport) project(snap *simulator.Snapshot, rx, ry float64) (int, int) {
	col := int(rx / snap.Width * float64(v.w))
	row := int(ry / snap.Height * float64(v.h))
	col = min(max(col, 0), v.w-1)
	row = min(max(row, 0), v.h-1)
	return v.x0 + col, v.y0 + row
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range []rune(text) {
		s.SetContent(x+i, y, r, nil, style)
	}
}

func drawFrame(s tcell.Screen, v viewport) {
	top, bottom := v.y0-1, v.y0+v.h
	left, right := v.x0-1, v.x0+v.w
	for x := v.x0; x < right; x++ {
		// Top and bottom are the same periodic seam
		s.SetContent(x, top, '┄', nil, styleSeam)
		s.SetContent(x, bottom, '┄', nil, styleSeam)
	}
	for y := v.y0; y < bottom; y++ {
		s.SetContent(left, y, tcell.RuneVLine, nil, styleWall)
		s.SetContent(right, y, tcell.RuneVLine, nil, styleWall)
	}
	s.SetContent(left, top, tcell.RuneULCorner, nil, styleWall)
	s.SetContent(right, top, tcell.RuneURCorner, nil, styleWall)
	s.SetContent(left, bottom, tcell.RuneLLCorner, nil, styleWall)
	s.SetContent(right, bottom, tcell.RuneLRCorner, nil, styleWall)
}

// render draws one frame. It does not call Show.
func render(s tcell.Screen, snap *simulator.Snapshot, metrics *simulator.Metrics, radii []float64, paused bool) {
	s.Clear()
	w, h := s.Size()

	state := "running"
	if paused {
		state = "paused"
	}
	drawText(s, 0, 0, styleStatus, fmt.Sprintf(
		"t=%.2f  n=%d  pairs=%d  walls=%d  stale=%d  E=%.4f  [%s]  q:quit space:pause r:reset",
		snap.VirtualTime, len(snap.Particles), metrics.PairCollisions, metrics.WallCollisions,
		metrics.StaleEvents, metrics.KineticEnergy, state))

	v, ok := layout(w, h)
	if !ok {
		return
	}
	drawFrame(s, v)

	for _, p := range snap.Particles {
		x, y := v.project(snap, p.Rx, p.Ry)
		s.SetContent(x, y, '●', nil, styleDefault.Foreground(colorFor(radii, p.Radius)))
	}
}

func colorFor(radii []float64, r float64) tcell.Color {
	i := slices.Index(radii, r)
	if i < 0 {
		return tcell.ColorWhite
	}
	return radiusColors[i%len(radiusColors)]
}
