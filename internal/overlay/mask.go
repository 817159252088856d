package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

// circle is an alpha mask that is opaque inside a disc.
type circle struct {
	center image.Point
	r      int
}

func (c *circle) ColorModel() color.Model { return color.AlphaModel }

func (c *circle) Bounds() image.Rectangle {
	return image.Rect(c.center.X-c.r, c.center.Y-c.r, c.center.X+c.r, c.center.Y+c.r)
}

func (c *circle) At(x, y int) color.Color {
	// Sample pixel centres so the disc is symmetric.
	dx := float64(x-c.center.X) + 0.5
	dy := float64(y-c.center.Y) + 0.5
	r := float64(c.r)
	if dx*dx+dy*dy <= r*r {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}

// circularPNG scales src to fit a diameter x diameter square, keeping its aspect
// ratio, clips it to a circle and encodes the result as PNG.
func circularPNG(src image.Image, diameter int) ([]byte, error) {
	sb := src.Bounds()
	w, h := diameter, diameter
	if sb.Dx() > sb.Dy() {
		h = diameter * sb.Dy() / sb.Dx()
	} else if sb.Dy() > sb.Dx() {
		w = diameter * sb.Dx() / sb.Dy()
	}
	w, h = max(w, 1), max(h, 1)

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, sb, draw.Src, nil)

	out := image.NewRGBA(image.Rect(0, 0, diameter, diameter))
	mask := &circle{center: image.Pt(diameter/2, diameter/2), r: diameter / 2}
	draw.DrawMask(out, out.Bounds(), scaled, image.Point{}, mask, image.Point{}, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
