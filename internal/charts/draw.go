package charts

import (
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

const (
	width   = 900
	height  = 600
	margin  = 70.0
	titleY  = 32.0
	tickLen = 5.0
)

var palette = []color.NRGBA{
	{0x4c, 0x72, 0xb0, 0xff},
	{0xdd, 0x84, 0x52, 0xff},
	{0x55, 0xa8, 0x68, 0xff},
	{0xc4, 0x4e, 0x52, 0xff},
	{0x81, 0x72, 0xb3, 0xff},
	{0x93, 0x78, 0x60, 0xff},
	{0xda, 0x8b, 0xc3, 0xff},
	{0x8c, 0x8c, 0x8c, 0xff},
	{0xcc, 0xb9, 0x74, 0xff},
	{0x64, 0xb5, 0xcd, 0xff},
}

var (
	textColor = color.NRGBA{0x22, 0x22, 0x22, 0xff}
	axisColor = color.NRGBA{0x66, 0x66, 0x66, 0xff}
	gridColor = color.NRGBA{0xe5, 0xe5, 0xe5, 0xff}
)

// slice is one labelled value of a pie or bar chart
type slice struct {
	Label string
	Value float64
}

// point is one (x, y) pair of a line or scatter chart
type point struct {
	X, Y  float64
	Label string
}

func newCanvas(title string) *gg.Context {
	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, width/2, titleY, 0.5, 0.5)
	return dc
}

// drawPie renders slices as a pie with a legend listing each share
func drawPie(title string, slices []slice) *gg.Context {
	dc := newCanvas(title)

	var total float64
	for _, s := range slices {
		total += s.Value
	}
	cx, cy, r := width*0.38, height*0.55, height*0.35

	angle := -math.Pi / 2
	for i, s := range slices {
		if s.Value <= 0 || total <= 0 {
			continue
		}
		sweep := s.Value / total * 2 * math.Pi
		dc.SetColor(palette[i%len(palette)])
		dc.MoveTo(cx, cy)
		dc.DrawArc(cx, cy, r, angle, angle+sweep)
		dc.ClosePath()
		dc.Fill()
		angle += sweep
	}

	lx, ly := width*0.72, height*0.3
	for i, s := range slices {
		dc.SetColor(palette[i%len(palette)])
		dc.DrawRectangle(lx, ly+float64(i)*22-8, 14, 14)
		dc.Fill()
		dc.SetColor(textColor)
		share := 0.0
		if total > 0 {
			share = s.Value / total * 100
		}
		dc.DrawStringAnchored(fmt.Sprintf("%s (%.1f%%)", s.Label, share), lx+22, ly+float64(i)*22, 0, 0.5)
	}
	return dc
}

// drawBars renders vertical bars with the value printed above each bar
func drawBars(title, yLabel string, bars []slice, valueFormat string) *gg.Context {
	dc := newCanvas(title)
	x0, y0, x1, y1 := margin, height-margin, width-margin/2, margin

	maxV := 0.0
	for _, b := range bars {
		maxV = max(maxV, b.Value)
	}
	if maxV == 0 {
		maxV = 1
	}

	drawAxes(dc, x0, y0, x1, y1, yLabel, maxV)

	n := float64(len(bars))
	slot := (x1 - x0) / n
	barW := slot * 0.6
	for i, b := range bars {
		h := b.Value / maxV * (y0 - y1)
		x := x0 + slot*float64(i) + (slot-barW)/2
		dc.SetColor(palette[i%len(palette)])
		dc.DrawRectangle(x, y0-h, barW, h)
		dc.Fill()

		dc.SetColor(textColor)
		dc.DrawStringAnchored(fmt.Sprintf(valueFormat, b.Value), x+barW/2, y0-h-10, 0.5, 0.5)
		dc.DrawStringAnchored(truncate(b.Label, int(slot/7)), x+barW/2, y0+16, 0.5, 0.5)
	}
	return dc
}

// drawLine renders points joined in order with markers; X is the point index
func drawLine(title, yLabel string, pts []point) *gg.Context {
	dc := newCanvas(title)
	x0, y0, x1, y1 := margin, height-margin, width-margin/2, margin

	maxY := 0.0
	for _, p := range pts {
		maxY = max(maxY, p.Y)
	}
	if maxY == 0 {
		maxY = 1
	}
	drawAxes(dc, x0, y0, x1, y1, yLabel, maxY)

	step := (x1 - x0) / float64(max(len(pts), 1))
	px := func(i int) float64 { return x0 + step*(float64(i)+0.5) }
	py := func(v float64) float64 { return y0 - v/maxY*(y0-y1) }

	dc.SetColor(palette[0])
	dc.SetLineWidth(2)
	for i, p := range pts {
		if i == 0 {
			dc.MoveTo(px(i), py(p.Y))
		} else {
			dc.LineTo(px(i), py(p.Y))
		}
	}
	dc.Stroke()

	for i, p := range pts {
		dc.SetColor(palette[0])
		dc.DrawCircle(px(i), py(p.Y), 4)
		dc.Fill()
		dc.SetColor(textColor)
		dc.DrawStringAnchored(truncate(p.Label, int(step/7)), px(i), y0+16, 0.5, 0.5)
	}
	return dc
}

// drawScatter renders points on linear axes starting at zero
func drawScatter(title, xLabel, yLabel string, pts []point) *gg.Context {
	dc := newCanvas(title)
	x0, y0, x1, y1 := margin, height-margin, width-margin/2, margin

	maxX, maxY := 0.0, 0.0
	for _, p := range pts {
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	if maxX == 0 {
		maxX = 1
	}
	if maxY == 0 {
		maxY = 1
	}
	drawAxes(dc, x0, y0, x1, y1, yLabel, maxY)

	dc.SetColor(textColor)
	dc.DrawStringAnchored(xLabel, (x0+x1)/2, y0+40, 0.5, 0.5)
	for i := 0; i <= 4; i++ {
		v := maxX * float64(i) / 4
		x := x0 + (x1-x0)*float64(i)/4
		dc.DrawStringAnchored(compact(v), x, y0+16, 0.5, 0.5)
	}

	dc.SetColor(palette[1])
	for _, p := range pts {
		x := x0 + p.X/maxX*(x1-x0)
		y := y0 - p.Y/maxY*(y0-y1)
		dc.DrawCircle(x, y, 5)
		dc.Fill()
	}
	return dc
}

// drawAxes draws the x and y axes with four horizontal grid lines
func drawAxes(dc *gg.Context, x0, y0, x1, y1 float64, yLabel string, maxY float64) {
	dc.SetLineWidth(1)
	for i := 1; i <= 4; i++ {
		y := y0 - (y0-y1)*float64(i)/4
		dc.SetColor(gridColor)
		dc.DrawLine(x0, y, x1, y)
		dc.Stroke()
	}

	dc.SetColor(axisColor)
	dc.DrawLine(x0, y0, x1, y0)
	dc.DrawLine(x0, y0, x0, y1)
	dc.Stroke()

	dc.SetColor(textColor)
	for i := 0; i <= 4; i++ {
		v := maxY * float64(i) / 4
		y := y0 - (y0-y1)*float64(i)/4
		dc.DrawLine(x0-tickLen, y, x0, y)
		dc.Stroke()
		dc.DrawStringAnchored(compact(v), x0-tickLen-4, y, 1, 0.5)
	}
	dc.DrawStringAnchored(yLabel, x0, y1-18, 0.5, 0.5)
}

func compact(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	case v == math.Trunc(v):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n < 4 || len(r) <= n {
		return s
	}
	return string(r[:n-2]) + ".."
}
