package extract

import (
	"bytes"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

const maxEmbeddedImages = 16

var jpegSOI = []byte{0xFF, 0xD8, 0xFF}

// qrAttempts are tried in order until one decodes.
var qrAttempts = []func(image.Image) (image.Image, bool){
	func(img image.Image) (image.Image, bool) { return img, true },
	func(img image.Image) (image.Image, bool) { return enhanceForQR(img), true },
	func(img image.Image) (image.Image, bool) { return upscale(img, 2) },
	func(img image.Image) (image.Image, bool) {
		up, ok := upscale(img, 2)
		if !ok {
			return nil, false
		}
		return enhanceForQR(up), true
	},
}

func decodeQR(img image.Image) (string, bool) {
	reader := qrcode.NewQRCodeReader()
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	for _, attempt := range qrAttempts {
		candidate, ok := attempt(img)
		if !ok {
			continue
		}
		bmp, err := gozxing.NewBinaryBitmapFromImage(candidate)
		if err != nil {
			continue
		}
		result, err := reader.Decode(bmp, hints)
		if err != nil {
			reader.Reset()
			continue
		}
		if text := result.GetText(); text != "" {
			return text, true
		}
	}
	return "", false
}

// embeddedJPEGs returns the JPEG (DCTDecode) images stored in a PDF, found by
// scanning for JPEG start-of-image markers.
func embeddedJPEGs(data []byte) []image.Image {
	var out []image.Image
	for offset := 0; offset < len(data) && len(out) < maxEmbeddedImages; {
		idx := bytes.Index(data[offset:], jpegSOI)
		if idx < 0 {
			break
		}
		start := offset + idx
		// The decoder stops at the end-of-image marker, so trailing bytes are ignored.
		img, err := decodeJPEG(data[start:])
		if err == nil {
			out = append(out, img)
		}
		offset = start + len(jpegSOI)
	}
	return out
}
