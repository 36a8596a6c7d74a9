package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Position anchors a label to one corner of the frame.
type Position int

const (
	TopLeft Position = iota
	TopRight
	BottomLeft
	BottomRight
)

var positionNames = map[string]Position{
	"top-left":     TopLeft,
	"top-right":    TopRight,
	"bottom-left":  BottomLeft,
	"bottom-right": BottomRight,
}

// ParsePosition accepts "top-left", "top-right", "bottom-left" or "bottom-right".
func ParsePosition(s string) (Position, error) {
	p, ok := positionNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return TopLeft, fmt.Errorf("unknown label position %q", s)
	}
	return p, nil
}

// Label draws a short line of text, such as the active filter name, onto
// streamed frames.
type Label struct {
	mu        sync.RWMutex
	enabled   bool
	position  Position
	margin    int
	padding   int
	opacity   float64
	textColor color.RGBA
	bgColor   *color.RGBA
}

// NewLabel creates an enabled top-left label with white text on a dark box.
func NewLabel() *Label {
	bg := color.RGBA{20, 20, 20, 255}
	return &Label{
		enabled:   true,
		position:  TopLeft,
		margin:    8,
		padding:   5,
		opacity:   0.85,
		textColor: color.RGBA{255, 255, 255, 255},
		bgColor:   &bg,
	}
}

// IsEnabled returns whether the label should be rendered
func (l *Label) IsEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled
}

// SetEnabled sets whether the label should be rendered
func (l *Label) SetEnabled(enabled bool) {
	l.mu.Lock()
	l.enabled = enabled
	l.mu.Unlock()
}

// SetPosition moves the label to another corner.
func (l *Label) SetPosition(p Position) {
	l.mu.Lock()
	l.position = p
	l.mu.Unlock()
}

// SetOpacity sets the label's opacity (0.0 to 1.0)
func (l *Label) SetOpacity(opacity float64) {
	if opacity < 0.0 {
		opacity = 0.0
	}
	if opacity > 1.0 {
		opacity = 1.0
	}
	l.mu.Lock()
	l.opacity = opacity
	l.mu.Unlock()
}

// SetBackground sets the background color (nil for transparent)
func (l *Label) SetBackground(c *color.RGBA) {
	l.mu.Lock()
	l.bgColor = c
	l.mu.Unlock()
}

// Bounds returns where text would be drawn on a frame of the given size.
func (l *Label) Bounds(frame image.Rectangle, text string) image.Rectangle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bounds(frame, text)
}

func (l *Label) bounds(frame image.Rectangle, text string) image.Rectangle {
	face := basicfont.Face7x13
	textW := font.MeasureString(face, text).Ceil()
	w := textW + l.padding*2
	h := face.Height + l.padding*2

	x, y := frame.Min.X+l.margin, frame.Min.Y+l.margin
	switch l.position {
	case TopRight:
		x = frame.Max.X - l.margin - w
	case BottomLeft:
		y = frame.Max.Y - l.margin - h
	case BottomRight:
		x = frame.Max.X - l.margin - w
		y = frame.Max.Y - l.margin - h
	}
	return image.Rect(x, y, x+w, y+h)
}

// Render draws text onto img. Frames too small for the label are left alone.
func (l *Label) Render(img *image.RGBA, text string) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.enabled || text == "" {
		return
	}

	box := l.bounds(img.Bounds(), text)
	if !box.In(img.Bounds()) {
		return
	}

	if l.bgColor != nil {
		FillRect(img, box, *l.bgColor, l.opacity)
	}

	face := basicfont.Face7x13
	textImg := image.NewRGBA(image.Rect(0, 0, box.Dx()-l.padding*2, face.Height))
	d := &font.Drawer{
		Dst:  textImg,
		Src:  image.NewUniform(l.textColor),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: fixed.I(face.Ascent)},
	}
	d.DrawString(text)

	BlendImage(img, textImg, box.Min.X+l.padding, box.Min.Y+l.padding, l.opacity)
}
