package transcode

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"product-media/internal/capture"
	"product-media/internal/logging"
	"product-media/internal/mediatypes"
	"product-media/internal/metrics"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	_ "image/gif"
	_ "image/png"
)

const (
	// DefaultQuality is the encode quality for derived product images.
	DefaultQuality = 0.80
	// PosterQuality is the encode quality for video poster frames. Posters
	// are the only visual a shopper sees before playback, so they get a
	// higher budget.
	PosterQuality = 0.95
)

// EncodeError reports that a decoded surface could not be re-encoded in any
// supported output format. Callers degrade to "no derived asset"; an
// EncodeError never aborts the surrounding upload.
type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s encode failed: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Encoded is a finished derived asset ready for storage.
type Encoded struct {
	Data        []byte
	Format      string
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// Transcoder converts decoded pixel surfaces into derived web assets.
// WebP is the preferred output; JPEG is the fallback when libvips is not
// available or rejects the surface.
type Transcoder struct {
	quality       float64
	posterQuality float64
}

// New creates a Transcoder. Qualities are in (0, 1]; non-positive or
// out-of-range values fall back to the defaults.
func New(quality, posterQuality float64) *Transcoder {
	if quality <= 0 || quality > 1 {
		quality = DefaultQuality
	}
	if posterQuality <= 0 || posterQuality > 1 {
		posterQuality = PosterQuality
	}
	return &Transcoder{quality: quality, posterQuality: posterQuality}
}

// Load decodes an image file into a surface at its native resolution.
// EXIF orientation is applied during decode so the surface matches what a
// viewer would see.
func (t *Transcoder) Load(path string) (*capture.Surface, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		// imaging covers the common formats; fall through to the
		// registered stdlib/x-image decoders for the rest (webp in
		// particular).
		img, err = decodeRegistered(path)
		if err != nil {
			return nil, &capture.DecodeError{Path: path, Err: err}
		}
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, &capture.DecodeError{Path: path, Err: fmt.Errorf("decoded image is zero-sized")}
	}

	countDecodeFormat(path)

	return &capture.Surface{
		Image:  img,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// decodeRegistered decodes through the image.Decode registry.
func decodeRegistered(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	logging.Debug("Decoded %s via registered %s decoder", path, format)
	return img, nil
}

// countDecodeFormat records the source format by sniffing the file header.
func countDecodeFormat(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	header := make([]byte, 16)
	n, _ := f.Read(header)
	metrics.TranscodeImageDecodeByFormat.WithLabelValues(mediatypes.Sniff(header[:n])).Inc()
}

// EncodeImage encodes a product image surface at the general quality level.
func (t *Transcoder) EncodeImage(img image.Image) (*Encoded, error) {
	return t.encode(img, t.quality)
}

// EncodePoster encodes a video poster frame at the poster quality level.
func (t *Transcoder) EncodePoster(img image.Image) (*Encoded, error) {
	return t.encode(img, t.posterQuality)
}

// encode produces a derived asset at the surface's exact dimensions. The
// pipeline never resizes: the storefront's layout depends on derived assets
// matching the source resolution.
func (t *Transcoder) encode(img image.Image, quality float64) (*Encoded, error) {
	bounds := img.Bounds()

	if IsVipsAvailable() {
		data, err := encodeWebpWithVips(img, quality)
		if err == nil {
			metrics.TranscodeEncodesTotal.WithLabelValues("webp", "success").Inc()
			return &Encoded{
				Data:        data,
				Format:      "webp",
				ContentType: "image/webp",
				Ext:         ".webp",
				Width:       bounds.Dx(),
				Height:      bounds.Dy(),
			}, nil
		}
		metrics.TranscodeEncodesTotal.WithLabelValues("webp", "error").Inc()
		logging.Warn("WebP encode failed, falling back to JPEG: %v", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(quality*100 + 0.5)}); err != nil {
		metrics.TranscodeEncodesTotal.WithLabelValues("jpeg", "error").Inc()
		return nil, &EncodeError{Format: "jpeg", Err: err}
	}

	metrics.TranscodeEncodesTotal.WithLabelValues("jpeg", "success").Inc()
	return &Encoded{
		Data:        buf.Bytes(),
		Format:      "jpeg",
		ContentType: "image/jpeg",
		Ext:         ".jpg",
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}, nil
}
