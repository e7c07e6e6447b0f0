package menu

import "image/color"

// Palette shared with the display implementations
var (
	ColorBlack    = color.RGBA{0x00, 0x00, 0x00, 0xff}
	ColorWhite    = color.RGBA{0xff, 0xff, 0xff, 0xff}
	ColorNavy     = color.RGBA{0x00, 0x00, 0x80, 0xff}
	ColorCyan     = color.RGBA{0x00, 0xff, 0xff, 0xff}
	ColorDarkGrey = color.RGBA{0x80, 0x80, 0x80, 0xff}
)

var (
	colorText            = ColorWhite
	colorBackground      = ColorBlack
	colorTitleBackground = ColorNavy
	colorActiveBorder    = ColorWhite
	colorInactiveBorder  = ColorDarkGrey
)

// Menu layout on a 320x240 panel
const (
	layoutTitleX      int16 = 10
	layoutTitleY      int16 = 10
	layoutTitleWidth  int16 = 300
	layoutTitleHeight int16 = 35

	layoutItemX      int16 = 30
	layoutItemY      int16 = layoutTitleY + layoutTitleHeight + 5
	layoutItemWidth  int16 = 260
	layoutItemHeight int16 = 30
	layoutItemPitchY int16 = 31
)

// Editor value boxes
const (
	valueX      int16 = 100
	valueY      int16 = 100
	valueWidth  int16 = 120
	valueHeight int16 = 26

	calValueY     int16 = 140
	calValueWidth int16 = 100

	instructionX int16 = 20
	lineHeight   int16 = 20
)

func itemY(i int) int16 {
	return layoutItemY + int16(i)*layoutItemPitchY
}
