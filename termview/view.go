// Package termview draws game scenes on a terminal and maps key presses to tank inputs.
package termview

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"artillery/game"
)

const (
	groundRune    = '█'
	tankRune      = '▆'
	shotRune      = '●'
	explosionRune = '*'
)

var (
	styleGround    = tcell.StyleDefault.Foreground(tcell.ColorOlive)
	styleFriendly  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleEnemy     = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleShot      = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleExplosion = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleStatus    = tcell.StyleDefault.Reverse(true)
)

// View renders scenes onto a tcell screen. The world is scaled to fit the screen minus
// one status row.
type View struct {
	screen tcell.Screen
	Debug  bool
}

func New(screen tcell.Screen) *View {
	return &View{screen: screen}
}

type field struct {
	cols, rows int
	w, h       float64
}

func (f field) cell(x, y float64) (int, int) {
	col := int(math.Floor(x * float64(f.cols) / f.w))
	row := int(math.Floor(y * float64(f.rows) / f.h))
	return col, row
}

func (f field) inside(col, row int) bool {
	return col >= 0 && col < f.cols && row >= 0 && row < f.rows
}

// Draw renders one frame and shows it.
func (v *View) Draw(sc game.Scene) {
	cols, rows := v.screen.Size()
	v.screen.Clear()
	if cols <= 0 || rows < 2 || sc.Width <= 0 || sc.Height <= 0 {
		v.screen.Show()
		return
	}
	f := field{cols: cols, rows: rows - 1, w: float64(sc.Width), h: float64(sc.Height)}

	v.drawGround(f, sc.Ground)
	for _, e := range sc.Explosions {
		v.drawCircle(f, e)
	}
	for _, p := range sc.Projectiles {
		col, row := f.cell(p.X, p.Y)
		if f.inside(col, row) {
			v.screen.SetContent(col, row, shotRune, nil, styleShot)
		}
	}
	for _, t := range sc.Tanks {
		v.drawTank(f, t)
	}
	v.drawStatus(cols, rows-1, sc)
	v.screen.Show()
}

func (v *View) drawGround(f field, ground []float64) {
	if len(ground) == 0 {
		return
	}
	for col := 0; col < f.cols; col++ {
		x := int((float64(col) + 0.5) * f.w / float64(f.cols))
		if x >= len(ground) {
			x = len(ground) - 1
		}
		_, top := f.cell(0, ground[x])
		if top < 0 {
			top = 0
		}
		for row := top; row < f.rows; row++ {
			v.screen.SetContent(col, row, groundRune, nil, styleGround)
		}
	}
}

func (v *View) drawCircle(f field, c game.Circle) {
	c0, r0 := f.cell(c.X-c.R, c.Y-c.R)
	c1, r1 := f.cell(c.X+c.R, c.Y+c.R)
	drawn := false
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			if !f.inside(col, row) {
				continue
			}
			// cell centre back in world space
			x := (float64(col) + 0.5) * f.w / float64(f.cols)
			y := (float64(row) + 0.5) * f.h / float64(f.rows)
			if math.Hypot(x-c.X, y-c.Y) <= c.R {
				v.screen.SetContent(col, row, explosionRune, nil, styleExplosion)
				drawn = true
			}
		}
	}
	// smaller than a cell
	if col, row := f.cell(c.X, c.Y); !drawn && f.inside(col, row) {
		v.screen.SetContent(col, row, explosionRune, nil, styleExplosion)
	}
}

func (v *View) drawTank(f field, t game.TankShape) {
	style := styleEnemy
	if t.Friendly {
		style = styleFriendly
	}
	cx, cy := t.Body.X+t.Body.W/2, t.Body.Y+t.Body.H/2
	c0, row := f.cell(t.Body.X, cy)
	c1, _ := f.cell(t.Body.Right(), cy)
	for col := c0; col <= c1; col++ {
		if f.inside(col, row) {
			v.screen.SetContent(col, row, tankRune, nil, style)
		}
	}

	rad := t.Barrel * math.Pi / 180
	bc, br := f.cell(cx+math.Cos(rad)*t.Reach, cy+math.Sin(rad)*t.Reach)
	if (bc != c0 || br != row) && f.inside(bc, br) {
		v.screen.SetContent(bc, br, barrelRune(t.Barrel), nil, style)
	}

	label := fmt.Sprintf("%s %.0f", t.Name, t.Health)
	start := (c0+c1)/2 - len(label)/2
	v.text(start, row-2, label, style)
}

// barrelRune picks the line character closest to a barrel angle, y down.
func barrelRune(angle float64) rune {
	a := math.Mod(angle, 180)
	if a < 0 {
		a += 180
	}
	switch {
	case a < 22.5 || a >= 157.5:
		return '─'
	case a < 67.5:
		return '╲'
	case a < 112.5:
		return '│'
	default:
		return '╱'
	}
}

func (v *View) drawStatus(cols, row int, sc game.Scene) {
	for col := 0; col < cols; col++ {
		v.screen.SetContent(col, row, ' ', nil, styleStatus)
	}
	col := 0
	for _, t := range sc.Tanks {
		s := fmt.Sprintf(" %s hp:%.0f pw:%.0f ang:%.0f ", t.Name, t.Health, t.Power, t.Display)
		col = v.text(col, row, s, styleStatus)
	}
	if v.Debug {
		v.text(col, row, fmt.Sprintf(" tick:%d shots:%d ", sc.Tick, len(sc.Projectiles)), styleStatus)
	}
}

func (v *View) text(col, row int, s string, style tcell.Style) int {
	cols, rows := v.screen.Size()
	if row < 0 || row >= rows {
		return col
	}
	for _, r := range s {
		if col >= 0 && col < cols {
			v.screen.SetContent(col, row, r, nil, style)
		}
		col++
	}
	return col
}
