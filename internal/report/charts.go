// Package report renders chart images and the CSV and PDF exports.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"sentiment_research/internal/domain"
)

// ErrChartNotFound is returned for chart names that were not rendered.
var ErrChartNotFound = errors.New("chart not found")

// Charts maps chart names to PNG bytes.
type Charts map[string][]byte

// Get returns the PNG for name or ErrChartNotFound.
func (c Charts) Get(name string) ([]byte, error) {
	if img, ok := c[name]; ok && len(img) > 0 {
		return img, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrChartNotFound, name)
}

var (
	background = color.RGBA{0xff, 0xff, 0xff, 0xff}
	ink        = color.RGBA{0x33, 0x33, 0x33, 0xff}
	gridInk    = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	palette    = []color.RGBA{
		{0x4c, 0xaf, 0x50, 0xff},
		{0x9e, 0x9e, 0x9e, 0xff},
		{0xf4, 0x43, 0x36, 0xff},
		{0x21, 0x96, 0xf3, 0xff},
		{0xff, 0x98, 0x00, 0xff},
		{0x9c, 0x27, 0xb0, 0xff},
		{0x00, 0x96, 0x88, 0xff},
	}
	sentimentColors = map[string]color.RGBA{
		string(domain.LabelPositive): palette[0],
		string(domain.LabelNeutral):  palette[1],
		string(domain.LabelNegative): palette[2],
	}
)

// Renderer draws the four report charts as PNG images.
type Renderer struct {
	Width  int
	Height int
}

func NewRenderer() *Renderer { return &Renderer{Width: 640, Height: 400} }

// Render draws every non-empty series. Empty series are left out so Get
// reports them as not found.
func (r *Renderer) Render(series domain.ChartSeries) (Charts, error) {
	draws := map[string]func(*canvas, []domain.Point){
		domain.ChartSentiment: drawPie,
		domain.ChartSources:   drawBars,
		domain.ChartLocations: drawHBars,
		domain.ChartTimeline:  drawLine,
	}
	titles := map[string]string{
		domain.ChartSentiment: "Sentiment mix",
		domain.ChartSources:   "Posts by source",
		domain.ChartLocations: "Top locations",
		domain.ChartTimeline:  "Posts per day",
	}

	out := make(Charts, len(draws))
	for name, points := range series.Named() {
		if len(points) == 0 {
			continue
		}
		c := newCanvas(r.Width, r.Height)
		c.text(12, 20, titles[name], ink)
		draws[name](c, points)
		buf, err := c.encode()
		if err != nil {
			return nil, fmt.Errorf("render %s chart: %w", name, err)
		}
		out[name] = buf
	}
	return out, nil
}

type canvas struct {
	img  *image.RGBA
	face font.Face
}

func newCanvas(w, h int) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)
	return &canvas{img: img, face: basicfont.Face7x13}
}

func (c *canvas) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *canvas) rect(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r, &image.Uniform{col}, image.Point{}, draw.Src)
}

// text draws s with its baseline at y.
func (c *canvas) text(x, y int, s string, col color.Color) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  &image.Uniform{col},
		Face: c.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func (c *canvas) textWidth(s string) int {
	return font.MeasureString(c.face, s).Ceil()
}

// line draws a 2px segment with Bresenham steps.
func (c *canvas) line(x0, y0, x1, y1 int, col color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.rect(image.Rect(x0, y0, x0+2, y0+2), col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *canvas) legend(x, y int, points []domain.Point, colorFor func(int, domain.Point) color.Color) {
	for i, p := range points {
		row := y + i*20
		c.rect(image.Rect(x, row-10, x+12, row+2), colorFor(i, p))
		c.text(x+18, row, fmt.Sprintf("%s (%d)", truncate(p.Label, 24), p.Value), ink)
	}
}

func drawPie(c *canvas, points []domain.Point) {
	b := c.img.Bounds()
	cx, cy := b.Dx()/3, b.Dy()/2+10
	radius := float64(min(b.Dx()/3, b.Dy()/2) - 30)

	total := 0
	for _, p := range points {
		total += p.Value
	}
	// cumulative slice boundaries in radians, clockwise from 12 o'clock
	bounds := make([]float64, len(points))
	acc := 0
	for i, p := range points {
		acc += p.Value
		bounds[i] = 2 * math.Pi * float64(acc) / float64(total)
	}

	r := int(radius)
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if float64(x*x+y*y) > radius*radius {
				continue
			}
			angle := math.Atan2(float64(x), float64(-y))
			if angle < 0 {
				angle += 2 * math.Pi
			}
			idx := len(points) - 1
			for i, edge := range bounds {
				if angle < edge {
					idx = i
					break
				}
			}
			c.img.Set(cx+x, cy+y, pointColor(idx, points[idx]))
		}
	}
	c.legend(b.Dx()*2/3, 60, points, pointColor)
}

func drawBars(c *canvas, points []domain.Point) {
	b := c.img.Bounds()
	left, right, top, bottom := 50, b.Dx()-20, 40, b.Dy()-40
	peak := maxValue(points)
	axis(c, left, top, right, bottom, peak)

	slot := (right - left) / len(points)
	barW := max(slot*2/3, 2)
	for i, p := range points {
		h := scale(p.Value, peak, bottom-top)
		x := left + i*slot + (slot-barW)/2
		c.rect(image.Rect(x, bottom-h, x+barW, bottom), palette[(i+3)%len(palette)])
		label := truncate(p.Label, max(slot/7, 3))
		c.text(x+(barW-c.textWidth(label))/2, bottom+16, label, ink)
	}
}

func drawHBars(c *canvas, points []domain.Point) {
	b := c.img.Bounds()
	left, right, top, bottom := 130, b.Dx()-50, 40, b.Dy()-20
	peak := maxValue(points)

	slot := (bottom - top) / len(points)
	barH := max(slot*2/3, 2)
	c.line(left, top, left, bottom, ink)
	for i, p := range points {
		w := scale(p.Value, peak, right-left)
		y := top + i*slot + (slot-barH)/2
		c.rect(image.Rect(left+2, y, left+2+w, y+barH), palette[(i+3)%len(palette)])
		label := truncate(p.Label, 16)
		c.text(left-8-c.textWidth(label), y+barH/2+5, label, ink)
		c.text(left+8+w, y+barH/2+5, strconv.Itoa(p.Value), ink)
	}
}

func drawLine(c *canvas, points []domain.Point) {
	b := c.img.Bounds()
	left, right, top, bottom := 50, b.Dx()-30, 40, b.Dy()-40
	peak := maxValue(points)
	axis(c, left, top, right, bottom, peak)

	step := 0
	if len(points) > 1 {
		step = (right - left - 20) / (len(points) - 1)
	}
	every := max(len(points)/6, 1)
	prevX, prevY := -1, -1
	for i, p := range points {
		x := left + 10 + i*step
		y := bottom - scale(p.Value, peak, bottom-top)
		if prevX >= 0 {
			c.line(prevX, prevY, x, y, palette[3])
		}
		c.rect(image.Rect(x-3, y-3, x+4, y+4), palette[3])
		if i%every == 0 || i == len(points)-1 {
			c.text(x-c.textWidth(p.Label)/2, bottom+16, p.Label, ink)
		}
		prevX, prevY = x, y
	}
}

func axis(c *canvas, left, top, right, bottom, peak int) {
	for i := 1; i <= 4; i++ {
		y := bottom - (bottom-top)*i/4
		c.rect(image.Rect(left, y, right, y+1), gridInk)
		c.text(4, y+4, strconv.Itoa(peak*i/4), ink)
	}
	c.line(left, top, left, bottom, ink)
	c.line(left, bottom, right, bottom, ink)
	c.text(4, bottom+4, "0", ink)
}

func pointColor(i int, p domain.Point) color.Color {
	if col, ok := sentimentColors[p.Label]; ok {
		return col
	}
	return palette[i%len(palette)]
}

func maxValue(points []domain.Point) int {
	peak := 1
	for _, p := range points {
		peak = max(peak, p.Value)
	}
	return peak
}

func scale(v, peak, span int) int {
	return int(float64(v) / float64(peak) * float64(span))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "~"
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
