// Package docscan turns a photographed document page into a binarized,
// auto-cropped JPEG "scan".
//
// The pipeline is: scale down to fit the bounding box, reduce to
// grayscale, binarize (Bradley-Roth adaptive threshold by default), detect
// the page edges with a Sobel operator and crop to them if the detected
// region is large enough, and encode as JPEG.
package docscan

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/rusq/docscan/bitmap"
)

// Scanner is the document scan processor.  It holds only the options, so a
// single Scanner may be used from multiple goroutines.
type Scanner struct {
	opts options
	crop bitmap.CropPolicy
}

// New creates a new Scanner with the given options.
func New(opt ...Option) *Scanner {
	s := &Scanner{
		opts: defaultOptions(),
		crop: bitmap.DefaultCropPolicy,
	}
	for _, o := range opt {
		o(&s.opts)
	}
	return s
}

// Method returns the name of the binarization method.
func (s *Scanner) Method() string {
	return s.opts.method
}

// Page is the processing report.
type Page struct {
	SourceWidth  int             `json:"source_width"`
	SourceHeight int             `json:"source_height"`
	Width        int             `json:"width"`  // after resize
	Height       int             `json:"height"` // after resize
	Scale        float64         `json:"scale"`
	Method       string          `json:"method"`
	Detected     image.Rectangle `json:"detected"` // expanded edge box, empty if no edges
	Cropped      bool            `json:"cropped"`
	Bounds       image.Rectangle `json:"bounds"` // bounds of the output image
	WhiteRatio   float64         `json:"white_ratio"`
	Blank        bool            `json:"blank"`
	// Document is set if the source is dominated by dark and light
	// pixels, as printed or handwritten pages are.
	Document bool `json:"document"`
}

// Decode reads and decodes the source image.  Orientation stored in EXIF
// is applied.  Images that declare dimensions above the limits are rejected
// before being decoded.
func (s *Scanner) Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if err := s.checkSize(cfg.Width, cfg.Height); err != nil {
		return nil, &DecodeError{Err: err}
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	slog.Debug("decoded", "format", format, "width", cfg.Width, "height", cfg.Height)
	return img, nil
}

func (s *Scanner) checkSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrEmptyImage
	}
	if width > maxDimension || height > maxDimension {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels per side", ErrImageTooLarge, width, height, maxDimension)
	}
	if int64(width)*int64(height) > s.opts.maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, width, height, s.opts.maxPixels)
	}
	return nil
}

// Process runs the pixel pipeline on img and returns the binarized, possibly
// cropped, image and the report.
func (s *Scanner) Process(img image.Image) (*image.RGBA, *Page, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, nil, &DecodeError{Err: ErrEmptyImage}
	}
	binarize, err := bitmap.Method(s.opts.method)
	if err != nil {
		return nil, nil, fmt.Errorf("method %q: %w", s.opts.method, err)
	}
	src := img.Bounds()
	pg := &Page{
		SourceWidth:  src.Dx(),
		SourceHeight: src.Dy(),
		Method:       s.opts.method,
	}

	resized, scale := bitmap.ResizeToBound(img, s.opts.maxWidth, s.opts.maxHeight)
	pg.Width, pg.Height, pg.Scale = resized.Bounds().Dx(), resized.Bounds().Dy(), scale
	if s.opts.enhance {
		resized = bitmap.Enhance(resized, s.opts.contrast, s.opts.brightness)
	}

	gray := bitmap.NewGray(resized)
	pg.Document = bitmap.IsDocument(gray, 0, 0)
	bw := binarize(gray)

	// edges are detected on the grayscale image, the crop is applied to the
	// binarized one, both share the coordinate space.
	detected, accept := s.crop.AutoCrop(gray)
	pg.Detected = detected
	if accept {
		bw = bitmap.Crop(bw, detected)
		pg.Cropped = true
	}
	pg.Bounds = bw.Bounds()
	pg.WhiteRatio = bitmap.WhiteRatio(bw)
	pg.Blank = pg.WhiteRatio > bitmap.BlankWhiteRatio

	slog.Debug("processed",
		"source", src.Size(),
		"scale", scale,
		"method", s.opts.method,
		"detected", detected,
		"cropped", pg.Cropped,
		"document", pg.Document,
		"white_ratio", pg.WhiteRatio,
	)
	return bw, pg, nil
}

// Encode writes img as JPEG with the configured quality.
func (s *Scanner) Encode(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(s.jpegQuality())); err != nil {
		return &EncodeError{Err: err}
	}
	return nil
}

// jpegQuality maps quality in [0,1] to the encoder's [1,100] range.
func (s *Scanner) jpegQuality() int {
	q := int(math.Round(s.opts.quality * 100))
	return min(max(q, 1), 100)
}

// Scan decodes the image from r, processes it and writes the JPEG to w.
func (s *Scanner) Scan(r io.Reader, w io.Writer) (*Page, error) {
	img, err := s.Decode(r)
	if err != nil {
		return nil, err
	}
	out, pg, err := s.Process(img)
	if err != nil {
		return nil, err
	}
	if err := s.Encode(w, out); err != nil {
		return nil, err
	}
	return pg, nil
}

// Scan is a convenience function that runs a one-off Scanner and returns
// the encoded JPEG.
func Scan(r io.Reader, opt ...Option) ([]byte, *Page, error) {
	var buf bytes.Buffer
	pg, err := New(opt...).Scan(r, &buf)
	if err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), pg, nil
}
