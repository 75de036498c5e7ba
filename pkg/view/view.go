// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package view draws the live generator state in a terminal.
package view

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"

	"motiongen/pkg/sample"
)

const (
	barRow    = 9
	barMargin = 2
)

var (
	defStyle    = tcell.StyleDefault.Background(tcell.ColorReset).Foreground(tcell.ColorReset)
	titleStyle  = defStyle.Bold(true)
	barStyle    = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorOliveDrab)
	targetStyle = defStyle.Foreground(tcell.ColorDarkOrange).Bold(true)
	doneStyle   = defStyle.Foreground(tcell.ColorGreen)
)

// View is a sample sink that renders to a tcell screen. Esc, Ctrl-C and
// q end Run; the arrow keys nudge the target.
type View struct {
	screen tcell.Screen

	mu      sync.Mutex
	last    sample.Sample
	hasLast bool
	closed  bool
	lo, hi  float64

	// Step is the target change per arrow key press.
	Step float64
	// OnNudge receives the new target after an arrow key.
	OnNudge func(target float64)
}

// NewScreen creates and initializes the terminal screen.
func NewScreen() (tcell.Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.SetStyle(defStyle)
	s.Clear()
	return s, nil
}

// New wraps an initialized screen. lo and hi seed the bar range; it widens
// to fit every position and target seen.
func New(screen tcell.Screen, lo, hi float64) *View {
	if hi <= lo {
		hi = lo + 1
	}
	return &View{screen: screen, lo: lo, hi: hi, Step: 1}
}

// WriteSample records s and redraws. Samples written after Run has
// returned are dropped.
func (v *View) WriteSample(s sample.Sample) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.last = s
	v.hasLast = true
	v.widen(s.Position)
	v.widen(s.Target)
	v.mu.Unlock()

	v.Draw()
	return nil
}

func (v *View) widen(x float64) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return
	}
	if x < v.lo {
		v.lo = x
	}
	if x > v.hi {
		v.hi = x
	}
}

// Draw renders the current state.
func (v *View) Draw() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	s, has := v.last, v.hasLast
	lo, hi := v.lo, v.hi

	v.screen.Clear()
	drawText(v.screen, 0, 0, titleStyle, "motiongen   [Esc] quit   [<-/->] nudge target")

	if !has {
		drawText(v.screen, 0, 2, defStyle, "waiting for first tick")
		v.screen.Show()
		return
	}

	rows := []string{
		fmt.Sprintf("time      %d ms", s.TimeMs),
		fmt.Sprintf("target    %g", s.Target),
		fmt.Sprintf("position  %.4f", s.Position),
		fmt.Sprintf("velocity  %.4f", s.Velocity),
		fmt.Sprintf("accel     %g", s.Acceleration),
		fmt.Sprintf("phase     %s", s.PhaseName),
	}
	for i, r := range rows {
		drawText(v.screen, 0, 2+i, defStyle, r)
	}
	if s.Finished {
		drawText(v.screen, 20, 7, doneStyle, "finished")
	}

	width, _ := v.screen.Size()
	v.drawBar(width, lo, hi, s)
	v.screen.Show()
}

// drawBar fills the bar up to the position and marks the target.
func (v *View) drawBar(width int, lo, hi float64, s sample.Sample) {
	x1, x2 := barMargin, width-barMargin
	if x2-x1 < 3 {
		return
	}
	span := x2 - x1 - 1
	col := func(x float64) int {
		f := (x - lo) / (hi - lo)
		if math.IsNaN(f) {
			f = 0
		}
		f = math.Max(0, math.Min(1, f))
		return x1 + int(math.Round(f*float64(span)))
	}

	v.screen.SetContent(x1-1, barRow, '[', nil, defStyle)
	v.screen.SetContent(x2, barRow, ']', nil, defStyle)
	fill := col(s.Position)
	for c := x1; c <= fill; c++ {
		v.screen.SetContent(c, barRow, ' ', nil, barStyle)
	}
	v.screen.SetContent(col(s.Target), barRow, '|', nil, targetStyle)

	drawText(v.screen, x1, barRow+1, defStyle, fmt.Sprintf("%g", lo))
	label := fmt.Sprintf("%g", hi)
	drawText(v.screen, x2-len(label), barRow+1, defStyle, label)
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

// Run handles keyboard events until a quit key or ctx is done. The screen
// is finalized on return.
func (v *View) Run(ctx context.Context) error {
	defer v.Close()

	go func() {
		<-ctx.Done()
		v.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	v.Draw()
	for {
		ev := v.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return nil
		case *tcell.EventInterrupt:
			if ctx.Err() != nil {
				return nil
			}
		case *tcell.EventResize:
			v.screen.Sync()
			v.Draw()
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Rune() == 'q':
				return nil
			case ev.Key() == tcell.KeyCtrlL:
				v.screen.Sync()
			case ev.Key() == tcell.KeyRight:
				v.nudge(v.Step)
			case ev.Key() == tcell.KeyLeft:
				v.nudge(-v.Step)
			}
		}
	}
}

// Close restores the terminal. Later samples are dropped.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.closed = true
		v.screen.Fini()
	}
}

func (v *View) nudge(delta float64) {
	v.mu.Lock()
	target := v.last.Target + delta
	v.last.Target = target
	v.mu.Unlock()

	if v.OnNudge != nil {
		v.OnNudge(target)
	}
}
