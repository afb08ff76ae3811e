package extract

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"
)

const (
	// maxUpscalePixels bounds the source size that is upscaled for QR retries.
	maxUpscalePixels = 4096 * 4096
	// maxDecodePixels bounds the declared size of any image that is decoded.
	// A4 scanned at 600 dpi is about 35 million pixels.
	maxDecodePixels = 6000 * 8000
)

var errImageTooLarge = errors.New("image dimensions exceed limit")

// decodeImage decodes data after checking the dimensions in its header, so a
// forged header cannot force a huge allocation.
func decodeImage(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := checkDimensions(cfg); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// decodeJPEG is decodeImage restricted to JPEG, for data found inside PDFs.
func decodeJPEG(data []byte) (image.Image, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := checkDimensions(cfg); err != nil {
		return nil, err
	}
	return jpeg.Decode(bytes.NewReader(data))
}

func checkDimensions(cfg image.Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxDecodePixels {
		return errors.Wrapf(errImageTooLarge, "%dx%d", cfg.Width, cfg.Height)
	}
	return nil
}

func grayscale(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok && g.Rect.Min == (image.Point{}) && g.Stride == g.Rect.Dx() {
		return g
	}
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// contrast scales each pixel's distance from the mean luminance by factor.
func contrast(src *image.Gray, factor float64) *image.Gray {
	if len(src.Pix) == 0 {
		return src
	}
	var sum float64
	for _, p := range src.Pix {
		sum += float64(p)
	}
	mean := sum / float64(len(src.Pix))

	dst := image.NewGray(src.Rect)
	for i, p := range src.Pix {
		dst.Pix[i] = clamp(mean + factor*(float64(p)-mean))
	}
	return dst
}

// sharpen blends the image away from a 3x3 smoothed copy by factor. Border
// pixels are left unchanged.
func sharpen(src *image.Gray, factor float64) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	copy(dst.Pix, src.Pix)
	if b.Dx() < 3 || b.Dy() < 3 {
		return dst
	}
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			// PIL SMOOTH kernel: centre weight 5, neighbours 1, divided by 13.
			var acc float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					w := 1.0
					if dx == 0 && dy == 0 {
						w = 5
					}
					acc += w * float64(src.GrayAt(x+dx, y+dy).Y)
				}
			}
			smooth := acc / 13
			orig := float64(src.GrayAt(x, y).Y)
			dst.SetGray(x, y, color.Gray{Y: clamp(smooth + factor*(orig-smooth))})
		}
	}
	return dst
}

func upscale(src image.Image, factor int) (image.Image, bool) {
	b := src.Bounds()
	if b.Dx()*b.Dy() > maxUpscalePixels {
		return nil, false
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst, true
}

func enhanceForQR(src image.Image) image.Image {
	return sharpen(contrast(grayscale(src), 2.0), 2.0)
}

func clamp(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
