package display

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

var _ drivers.Displayer = (*Screen)(nil)

// Dialog frame on a 320x240 panel
const (
	dialogMargin    int16 = 10
	dialogTitleH    int16 = 35
	dialogSubtitleH int16 = 25
	textPadding     int16 = 5
)

var (
	dialogBackground = color.RGBA{0x00, 0x00, 0x80, 0xff}
	dialogBorder     = color.RGBA{0xff, 0xff, 0xff, 0xff}
	dialogText       = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// Screen is an RGB565 framebuffer the menu draws into. Text is rendered
// with tinyfont; the frame can be read back as an image for the web panel.
type Screen struct {
	mu     sync.RWMutex
	width  int16
	height int16
	pixels []uint16

	font       tinyfont.Fonter
	fontHeight int16

	// onDisplay is called after every completed drawing operation
	onDisplay func()
}

// NewScreen creates a cleared framebuffer
func NewScreen(width, height int) *Screen {
	return &Screen{
		width:      int16(width),
		height:     int16(height),
		pixels:     make([]uint16, width*height),
		font:       &proggy.TinySZ8pt7b,
		fontHeight: 8,
	}
}

// OnDisplay registers fn to be called when a drawing operation completes
func (s *Screen) OnDisplay(fn func()) {
	s.mu.Lock()
	s.onDisplay = fn
	s.mu.Unlock()
}

// Size implements drivers.Displayer
func (s *Screen) Size() (x, y int16) {
	return s.width, s.height
}

// SetPixel implements drivers.Displayer; callers hold s.mu
func (s *Screen) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return
	}
	s.pixels[int(y)*int(s.width)+int(x)] = rgb565From888(c.R, c.G, c.B)
}

// Display implements drivers.Displayer
func (s *Screen) Display() error {
	return nil
}

func (s *Screen) flush() {
	s.mu.RLock()
	fn := s.onDisplay
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func rgb565From888(r, g, b uint8) uint16 {
	return uint16((uint16(r>>3)&0x1F)<<11 | (uint16(g>>2)&0x3F)<<5 | (uint16(b>>3) & 0x1F))
}

func rgb888From565(p uint16) color.RGBA {
	r := uint8(p>>11) & 0x1F
	g := uint8(p>>5) & 0x3F
	b := uint8(p) & 0x1F
	return color.RGBA{r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2, 0xff}
}

// fillRect fills a clipped rectangle; callers hold s.mu
func (s *Screen) fillRect(x, y, w, h int16, c color.RGBA) {
	x0 := clamp(x, 0, s.width)
	y0 := clamp(y, 0, s.height)
	x1 := clamp(x+w, 0, s.width)
	y1 := clamp(y+h, 0, s.height)

	pixel := rgb565From888(c.R, c.G, c.B)
	for py := y0; py < y1; py++ {
		row := int(py) * int(s.width)
		for px := x0; px < x1; px++ {
			s.pixels[row+int(px)] = pixel
		}
	}
}

// strokeRect draws a one pixel outline; callers hold s.mu
func (s *Screen) strokeRect(x, y, w, h int16, c color.RGBA) {
	if w <= 0 || h <= 0 {
		return
	}
	s.fillRect(x, y, w, 1, c)
	s.fillRect(x, y+h-1, w, 1, c)
	s.fillRect(x, y, 1, h, c)
	s.fillRect(x+w-1, y, 1, h, c)
}

func clamp(v, lo, hi int16) int16 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// writeText draws text left aligned and vertically centred in the box;
// callers hold s.mu
func (s *Screen) writeText(text string, x, y, h int16, c color.RGBA) {
	baseline := y + (h+s.fontHeight)/2
	tinyfont.WriteLine(s, s.font, x+textPadding, baseline, text, c)
}

// Clear fills the whole screen
func (s *Screen) Clear(c color.RGBA) {
	s.mu.Lock()
	s.fillRect(0, 0, s.width, s.height, c)
	s.mu.Unlock()
	s.flush()
}

// DrawRect draws a rectangle outline
func (s *Screen) DrawRect(x, y, w, h int16, c color.RGBA) {
	s.mu.Lock()
	s.strokeRect(x, y, w, h, c)
	s.mu.Unlock()
	s.flush()
}

// DrawText fills a box, outlines it and writes text inside
func (s *Screen) DrawText(text string, x, y, w, h int16, fg, bg, border color.RGBA) {
	s.mu.Lock()
	s.fillRect(x, y, w, h, bg)
	s.strokeRect(x, y, w, h, border)
	s.writeText(text, x, y, h, fg)
	s.mu.Unlock()
	s.flush()
}

// DrawDialogHeader paints a dialog over the whole screen with the title at
// the top and the subtitle at the bottom
func (s *Screen) DrawDialogHeader(title, subtitle string) {
	s.mu.Lock()
	s.fillRect(0, 0, s.width, s.height, dialogBackground)
	s.strokeRect(dialogMargin/2, dialogMargin/2, s.width-dialogMargin, s.height-dialogMargin, dialogBorder)

	s.fillRect(dialogMargin, dialogMargin, s.width-2*dialogMargin, dialogTitleH, dialogBackground)
	s.strokeRect(dialogMargin, dialogMargin, s.width-2*dialogMargin, dialogTitleH, dialogBorder)
	s.writeText(title, dialogMargin, dialogMargin, dialogTitleH, dialogText)

	subY := s.height - dialogMargin - dialogSubtitleH
	s.writeText(subtitle, dialogMargin, subY, dialogSubtitleH, dialogText)
	s.mu.Unlock()
	s.flush()
}

// TextWidth returns the rendered width of text in pixels
func (s *Screen) TextWidth(text string) int {
	_, outbox := tinyfont.LineWidth(s.font, text)
	return int(outbox)
}

// At returns the colour of one pixel
func (s *Screen) At(x, y int16) color.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return color.RGBA{}
	}
	return rgb888From565(s.pixels[int(y)*int(s.width)+int(x)])
}

// Image returns a copy of the frame
func (s *Screen) Image() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img := image.NewRGBA(image.Rect(0, 0, int(s.width), int(s.height)))
	for y := 0; y < int(s.height); y++ {
		for x := 0; x < int(s.width); x++ {
			img.SetRGBA(x, y, rgb888From565(s.pixels[y*int(s.width)+x]))
		}
	}
	return img
}

// WritePNG encodes the frame as PNG
func (s *Screen) WritePNG(w io.Writer) error {
	return png.Encode(w, s.Image())
}
