package overlay

import (
	"image"
	"image/color"
)

// BlendImage blends a source image onto a destination image at the given position
// with the specified opacity
func BlendImage(dst *image.RGBA, src image.Image, x, y int, opacity float64) {
	srcBounds := src.Bounds()
	dstBounds := dst.Bounds()

	for sy := srcBounds.Min.Y; sy < srcBounds.Max.Y; sy++ {
		dy := y + (sy - srcBounds.Min.Y)
		if dy < dstBounds.Min.Y || dy >= dstBounds.Max.Y {
			continue
		}

		for sx := srcBounds.Min.X; sx < srcBounds.Max.X; sx++ {
			dx := x + (sx - srcBounds.Min.X)
			if dx < dstBounds.Min.X || dx >= dstBounds.Max.X {
				continue
			}

			sr, sg, sb, sa := src.At(sx, sy).RGBA()

			// Apply opacity to source alpha
			alpha := float64(sa) * opacity / 65535.0
			if alpha <= 0 {
				continue
			}

			d := dst.RGBAAt(dx, dy)
			da := float64(d.A) / 255.0

			// Source channels from RGBA() are premultiplied; scale them by
			// opacity only, then composite "over".
			outA := alpha + da*(1-alpha)
			outR := float64(sr)/65535.0*opacity*255 + float64(d.R)*(1-alpha)
			outG := float64(sg)/65535.0*opacity*255 + float64(d.G)*(1-alpha)
			outB := float64(sb)/65535.0*opacity*255 + float64(d.B)*(1-alpha)

			dst.SetRGBA(dx, dy, color.RGBA{
				R: clamp8(outR),
				G: clamp8(outG),
				B: clamp8(outB),
				A: clamp8(outA * 255),
			})
		}
	}
}

// FillRect blends a solid rectangle onto dst.
func FillRect(dst *image.RGBA, r image.Rectangle, c color.RGBA, opacity float64) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	tmp := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for i := 0; i < len(tmp.Pix); i += 4 {
		tmp.Pix[i], tmp.Pix[i+1], tmp.Pix[i+2], tmp.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	BlendImage(dst, tmp, r.Min.X, r.Min.Y, opacity)
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
