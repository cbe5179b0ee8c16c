// Package imageio converts the image representations accepted by the web and
// CLI front-ends into one canonical *image.NRGBA.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"mime/multipart"
	"os"
	"reflect"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var (
	// ErrNoImage means the caller supplied nothing to classify.
	ErrNoImage = errors.New("no image provided")
	// ErrDecode means the supplied data is not a readable image.
	ErrDecode = errors.New("unable to decode image")
)

// RGBArray is a packed 8-bit RGB pixel buffer, row by row.
type RGBArray struct {
	Width  int
	Height int
	Pix    []uint8
}

// Normalize accepts nil, []byte, string (file path), io.Reader,
// *multipart.FileHeader, image.Image, [][][]uint8 (height x width x
// channels, 1, 3 or 4 channels) and RGBArray, and returns an NRGBA copy.
func Normalize(v any) (*image.NRGBA, error) {
	if isNil(v) {
		return nil, ErrNoImage
	}

	switch src := v.(type) {
	case image.Image:
		b := src.Bounds()
		if b.Dx() <= 0 || b.Dy() <= 0 {
			return nil, ErrNoImage
		}
		return imaging.Clone(src), nil
	case []byte:
		return decodeBytes(src)
	case string:
		if src == "" {
			return nil, ErrNoImage
		}
		return decodeFile(src)
	case *multipart.FileHeader:
		f, err := src.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %s: %w", src.Filename, err)
		}
		defer f.Close()
		return decodeReader(f)
	case io.Reader:
		return decodeReader(src)
	case [][][]uint8:
		return fromArray(src)
	case RGBArray:
		return fromRGB(src)
	case *RGBArray:
		return fromRGB(*src)
	default:
		return nil, fmt.Errorf("unsupported image type %T", v)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func decodeFile(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return decodeReader(f)
}

func decodeReader(r io.Reader) (*image.NRGBA, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return decodeBytes(data)
}

func decodeBytes(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return imaging.Clone(img), nil
}

func fromArray(pixels [][][]uint8) (*image.NRGBA, error) {
	if len(pixels) == 0 || len(pixels[0]) == 0 {
		return nil, ErrNoImage
	}
	height, width := len(pixels), len(pixels[0])
	channels := len(pixels[0][0])
	if channels != 1 && channels != 3 && channels != 4 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrDecode, channels)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y, row := range pixels {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d pixels, expected %d", ErrDecode, y, len(row), width)
		}
		for x, px := range row {
			if len(px) != channels {
				return nil, fmt.Errorf("%w: pixel (%d,%d) has %d channels, expected %d", ErrDecode, x, y, len(px), channels)
			}
			c := color.NRGBA{A: 255}
			switch channels {
			case 1:
				c.R, c.G, c.B = px[0], px[0], px[0]
			case 3:
				c.R, c.G, c.B = px[0], px[1], px[2]
			case 4:
				c.R, c.G, c.B, c.A = px[0], px[1], px[2], px[3]
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}

func fromRGB(a RGBArray) (*image.NRGBA, error) {
	if a.Width <= 0 || a.Height <= 0 || len(a.Pix) == 0 {
		return nil, ErrNoImage
	}
	if len(a.Pix) != a.Width*a.Height*3 {
		return nil, fmt.Errorf("%w: %d bytes for a %dx%d RGB image", ErrDecode, len(a.Pix), a.Width, a.Height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, a.Width, a.Height))
	for i := 0; i < a.Width*a.Height; i++ {
		img.Pix[i*4+0] = a.Pix[i*3+0]
		img.Pix[i*4+1] = a.Pix[i*3+1]
		img.Pix[i*4+2] = a.Pix[i*3+2]
		img.Pix[i*4+3] = 255
	}
	return img, nil
}
