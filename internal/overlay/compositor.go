package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"
)

// Reference frame used when no image has arrived yet. Overlay geometry is in
// the source image's own pixel space, so drawing directly onto the decoded
// image keeps image and overlay from ever drifting apart.
const (
	refWidth  = 640
	refHeight = 480
)

var (
	boxColor      = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	edgeColor     = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	markerColor   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	badgeTextCol  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	badgeBackCol  = color.RGBA{R: 0, G: 0, B: 0, A: 160}
	alertBackCol  = color.RGBA{R: 200, G: 0, B: 0, A: 220}
	placeholderBg = color.RGBA{R: 24, G: 26, B: 32, A: 255}
)

// Compositor projects a fused snapshot into an annotated JPEG frame.
type Compositor struct {
	quality int
}

// NewCompositor creates a compositor with the default JPEG quality.
func NewCompositor() *Compositor {
	return &Compositor{quality: 75}
}

// Compose renders the snapshot: base image (or placeholder), skeletons,
// keypoint markers, bounding boxes, then the status badges. It never panics
// on missing fields; an undecodable image degrades to the placeholder.
func (c *Compositor) Compose(snap types.Snapshot) ([]byte, error) {
	canvas := c.baseCanvas(snap.Frame)

	for _, pose := range snap.Frame.Poses {
		for _, edge := range visibleEdges(pose) {
			drawLine(canvas,
				int(edge[0].X), int(edge[0].Y),
				int(edge[1].X), int(edge[1].Y),
				edgeColor, 2)
		}
		for _, kp := range visibleKeypoints(pose) {
			fillCircle(canvas, int(kp.X), int(kp.Y), 4, markerColor)
		}
	}

	// Boxes are always drawn when present; the detector applies its own
	// threshold upstream.
	for _, box := range snap.Frame.BoundingBoxes {
		drawRect(canvas, int(box.X1), int(box.Y1), int(box.X2), int(box.Y2), boxColor, 2)
		label := fmt.Sprintf("%.2f", box.Confidence)
		drawLabel(canvas, int(box.X1), int(box.Y1)-6, label, badgeTextCol, badgeBackCol)
	}

	c.drawBadges(canvas, snap)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("overlay: encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Placeholder renders the no-image frame with current badges.
func (c *Compositor) Placeholder() ([]byte, error) {
	return c.Compose(types.Snapshot{ConnState: types.StateConnecting})
}

func (c *Compositor) baseCanvas(frame types.Frame) *image.RGBA {
	if frame.Image != nil {
		if src, err := jpeg.Decode(bytes.NewReader(frame.Image)); err == nil {
			canvas := image.NewRGBA(src.Bounds())
			draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)
			return canvas
		}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, refWidth, refHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(placeholderBg), image.Point{}, draw.Src)
	drawLabel(canvas, refWidth/2-60, refHeight/2, "waiting for camera...", badgeTextCol, badgeBackCol)
	return canvas
}

func (c *Compositor) drawBadges(canvas *image.RGBA, snap types.Snapshot) {
	w := canvas.Bounds().Dx()

	drawLabel(canvas, 10, 20, "FPS: "+strconv.Itoa(snap.FPS), badgeTextCol, badgeBackCol)
	drawLabel(canvas, 10, 40, "PERSONS: "+strconv.Itoa(snap.PersonCount()), badgeTextCol, badgeBackCol)

	status := snap.ConnState.String()
	drawLabel(canvas, w-10-7*len(status), 20, status, badgeTextCol, badgeBackCol)

	if snap.FallActive {
		msg := "FALL DETECTED"
		drawLabel(canvas, w/2-7*len(msg)/2, 30, msg, badgeTextCol, alertBackCol)
	}
}

// drawLabel renders text with a filled background box at the (x, y) text
// baseline, using the fixed 7x13 face.
func drawLabel(canvas *image.RGBA, x, y int, text string, fg, bg color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()

	pad := 3
	rect := image.Rect(x-pad, y-face.Ascent-pad, x+width+pad, y+face.Descent+pad)
	draw.Draw(canvas, rect.Intersect(canvas.Bounds()), image.NewUniform(bg), image.Point{}, draw.Over)

	d := font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// drawLine draws a thick line with Bresenham stepping.
func drawLine(canvas *image.RGBA, x1, y1, x2, y2 int, col color.Color, thickness int) {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx + dy

	x, y := x1, y1
	for {
		fillCircle(canvas, x, y, thickness/2, col)
		if x == x2 && y == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func drawRect(canvas *image.RGBA, x1, y1, x2, y2 int, col color.Color, thickness int) {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	for t := 0; t < thickness; t++ {
		drawHLine(canvas, x1, x2, y1+t, col)
		drawHLine(canvas, x1, x2, y2-t, col)
		drawVLine(canvas, x1+t, y1, y2, col)
		drawVLine(canvas, x2-t, y1, y2, col)
	}
}

func drawHLine(canvas *image.RGBA, x1, x2, y int, col color.Color) {
	for x := x1; x <= x2; x++ {
		setPixel(canvas, x, y, col)
	}
}

func drawVLine(canvas *image.RGBA, x, y1, y2 int, col color.Color) {
	for y := y1; y <= y2; y++ {
		setPixel(canvas, x, y, col)
	}
}

func fillCircle(canvas *image.RGBA, cx, cy, r int, col color.Color) {
	if r <= 0 {
		setPixel(canvas, cx, cy, col)
		return
	}
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				setPixel(canvas, cx+dx, cy+dy, col)
			}
		}
	}
}

func setPixel(canvas *image.RGBA, x, y int, col color.Color) {
	if image.Pt(x, y).In(canvas.Bounds()) {
		canvas.Set(x, y, col)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
