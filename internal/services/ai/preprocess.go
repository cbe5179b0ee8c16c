package ai

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Preprocessor converts images into the NCHW input tensor a model expects.
type Preprocessor struct {
	cfg PreprocessorConfig
}

// NewPreprocessor validates cfg and returns a Preprocessor for it.
func NewPreprocessor(cfg PreprocessorConfig) (*Preprocessor, error) {
	if cfg.DoResize {
		s := cfg.Size
		if s.ShortestEdge <= 0 && (s.Height <= 0 || s.Width <= 0) {
			return nil, fmt.Errorf("invalid resize target %+v", s)
		}
	}
	if cfg.DoCenterCrop && cfg.CropSize != nil && (cfg.CropSize.Height <= 0 || cfg.CropSize.Width <= 0) {
		return nil, fmt.Errorf("invalid crop size %+v", *cfg.CropSize)
	}
	if cfg.DoRescale && cfg.RescaleFactor <= 0 {
		return nil, fmt.Errorf("invalid rescale factor %v", cfg.RescaleFactor)
	}
	if cfg.DoNormalize {
		if len(cfg.ImageMean) != 3 || len(cfg.ImageStd) != 3 {
			return nil, errors.New("image_mean and image_std need one value per RGB channel")
		}
		for _, std := range cfg.ImageStd {
			if std == 0 {
				return nil, errors.New("image_std must not contain zero")
			}
		}
	}
	if _, err := filterFor(cfg.Resample); err != nil {
		return nil, err
	}
	return &Preprocessor{cfg: cfg}, nil
}

// InputShape is the tensor shape Apply produces, or nil when the spatial size
// depends on the input image.
func (p *Preprocessor) InputShape() []int64 {
	h, w := p.outputSize()
	if h <= 0 || w <= 0 {
		return nil
	}
	return []int64{1, 3, int64(h), int64(w)}
}

// outputSize is the final spatial size. shortest_edge always ends in an
// edge x edge center crop unless an explicit crop_size overrides it.
func (p *Preprocessor) outputSize() (int, int) {
	c := p.cfg
	if c.DoCenterCrop && c.CropSize != nil {
		return c.CropSize.Height, c.CropSize.Width
	}
	if c.Size.ShortestEdge > 0 && (c.DoResize || c.DoCenterCrop) {
		return c.Size.ShortestEdge, c.Size.ShortestEdge
	}
	if c.DoResize {
		return c.Size.Height, c.Size.Width
	}
	return 0, 0
}

// Apply resizes, crops, rescales and normalizes img into a [1,3,H,W] tensor.
func (p *Preprocessor) Apply(img image.Image) (Tensor, error) {
	if img == nil {
		return Tensor{}, errors.New("image is nil")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Tensor{}, errors.New("image is empty")
	}

	out := p.resize(img)
	if h, w := p.outputSize(); h > 0 && w > 0 {
		if ob := out.Bounds(); ob.Dx() != w || ob.Dy() != h {
			out = imaging.CropCenter(out, w, h)
		}
	}

	rgba := imaging.Clone(out)
	width, height := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	plane := width * height
	data := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+width*4]
		for x := 0; x < width; x++ {
			for c := 0; c < 3; c++ {
				data[c*plane+y*width+x] = p.scale(row[x*4+c], c)
			}
		}
	}

	return Tensor{
		Shape: []int64{1, 3, int64(height), int64(width)},
		Data:  data,
	}, nil
}

func (p *Preprocessor) resize(img image.Image) image.Image {
	c := p.cfg
	if !c.DoResize {
		return img
	}
	filter, _ := filterFor(c.Resample)

	if c.Size.ShortestEdge > 0 {
		b := img.Bounds()
		edge := uint(c.Size.ShortestEdge)
		if b.Dx() <= b.Dy() {
			return resize.Resize(edge, 0, img, filter)
		}
		return resize.Resize(0, edge, img, filter)
	}
	return resize.Resize(uint(c.Size.Width), uint(c.Size.Height), img, filter)
}

func (p *Preprocessor) scale(v uint8, channel int) float32 {
	f := float64(v)
	if p.cfg.DoRescale {
		f *= p.cfg.RescaleFactor
	}
	if p.cfg.DoNormalize {
		f = (f - p.cfg.ImageMean[channel]) / p.cfg.ImageStd[channel]
	}
	return float32(f)
}

func filterFor(resample int) (resize.InterpolationFunction, error) {
	switch resample {
	case ResampleNearest:
		return resize.NearestNeighbor, nil
	case ResampleLanczos:
		return resize.Lanczos3, nil
	case ResampleBilinear, 4, 5: // box and hamming have no direct equivalent
		return resize.Bilinear, nil
	case ResampleBicubic:
		return resize.Bicubic, nil
	default:
		return resize.Bilinear, fmt.Errorf("unsupported resample filter %d", resample)
	}
}
