package display

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"net/http"

	"github.com/jrockway/bedside-clock/glyph"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	previewCellW   = 48 // size of one digit cell
	previewCellH   = 80
	previewGap     = 22 // between cells; the colon lives in the gap after digit 1
	previewMargin  = 16
	previewCaption = 24 // room under the digits for the caption line
	previewStroke  = 4
)

// segLines holds the endpoints of each segment row, in half-cell units.
// The row order matches glyph.Mask: outer A-F, split middle bar, inner
// diagonals and verticals.
var segLines = [14][4]int{
	{0, 0, 2, 0}, // A
	{2, 0, 2, 1}, // B
	{2, 1, 2, 2}, // C
	{0, 2, 2, 2}, // D
	{0, 1, 0, 2}, // E
	{0, 0, 0, 1}, // F
	{0, 1, 1, 1}, // G1
	{1, 1, 2, 1}, // G2
	{0, 0, 1, 1}, // H
	{1, 0, 1, 1}, // J
	{2, 0, 1, 1}, // K
	{1, 1, 0, 2}, // L
	{1, 1, 1, 2}, // M
	{1, 1, 2, 2}, // N
}

// ServeHTTP serves the last committed frame as a PNG.
func (d *Display) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Add("content-type", "image/png")
	w.WriteHeader(http.StatusOK)
	if err := png.Encode(w, d.render()); err != nil {
		log.Printf("encoding preview image: %v", err)
	}
}

// render draws the shown frame the way the hardware would look: lit
// segments in amber scaled by the dimming level, unlit segments as a
// faint ghost, and a caption with the device settings.
func (d *Display) render() image.Image {
	f := d.Shown()

	width := 2*previewMargin + 4*previewCellW + 3*previewGap
	height := 2*previewMargin + previewCellH + previewCaption
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)

	lit := litColor(f.Brightness)
	ghost := color.RGBA{R: 0x30, G: 0x1c, B: 0x06, A: 0xff}
	colon := f.Colon
	for i, m := range f.Digits {
		if i == colonDigit && m&(1<<14) != 0 {
			// The board wires this digit's decimal-point row to the colon.
			colon = true
			m &^= 1 << 14
		}
		xOff := previewMargin + i*(previewCellW+previewGap)
		drawDigit(img, xOff, previewMargin, m, lit, ghost)
	}
	if colon {
		x := previewMargin + 2*previewCellW + previewGap + previewGap/2
		dot(img, x, previewMargin+previewCellH/3, lit)
		dot(img, x, previewMargin+2*previewCellH/3, lit)
	}

	(&font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 0xc0, G: 0xc0, B: 0xc0, A: 0xff}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(previewMargin, height-previewMargin/2),
	}).DrawString(fmt.Sprintf("brightness %d, blink %s", f.Brightness, f.Blink))
	return img
}

func drawDigit(img *image.RGBA, xOff, yOff int, m glyph.Mask, lit, ghost color.RGBA) {
	for bit, seg := range segLines {
		c := ghost
		if m&(1<<bit) != 0 {
			c = lit
		}
		thickLine(img,
			xOff+seg[0]*previewCellW/2, yOff+seg[1]*previewCellH/2,
			xOff+seg[2]*previewCellW/2, yOff+seg[3]*previewCellH/2,
			c)
	}
	// The decimal-point row gets a dot at the bottom-right corner.
	if m&(1<<14) != 0 {
		dot(img, xOff+previewCellW+previewStroke, yOff+previewCellH, lit)
	}
}

// litColor scales the display's amber toward the dimming level, so the
// preview shows roughly what the eye would see.
func litColor(brightness int) color.RGBA {
	scale := float64(clampBrightness(brightness)+1) / 16
	return color.RGBA{
		R: uint8(0xff * scale),
		G: uint8(0x99 * scale),
		B: 0x00,
		A: 0xff,
	}
}

// thickLine draws a previewStroke-wide line by stamping squares along it.
// Crude, but plenty for a debug page.
func thickLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx, dy := x1-x0, y1-y0
	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		stamp(img, x0+dx*i/steps, y0+dy*i/steps, previewStroke, c)
	}
}

func dot(img *image.RGBA, x, y int, c color.RGBA) {
	stamp(img, x, y, previewStroke*2, c)
}

// stamp fills a size x size square centered on (x, y).
func stamp(img *image.RGBA, x, y, size int, c color.RGBA) {
	for px := x - size/2; px < x+size/2+size%2; px++ {
		for py := y - size/2; py < y+size/2+size%2; py++ {
			img.SetRGBA(px, py, c)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
