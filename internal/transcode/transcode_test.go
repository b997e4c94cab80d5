package transcode

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"product-media/internal/capture"
)

// makeTestImage renders a simple gradient so lossy encoders have real
// content to work with.
func makeTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func writeTestPNG(t *testing.T, width, height int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, makeTestImage(width, height)); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPreservesDimensions(t *testing.T) {
	path := writeTestPNG(t, 317, 211)

	tr := New(DefaultQuality, PosterQuality)
	surface, err := tr.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if surface.Width != 317 || surface.Height != 211 {
		t.Errorf("surface = %dx%d, want 317x211", surface.Width, surface.Height)
	}
}

func TestLoadCorruptImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := New(DefaultQuality, PosterQuality)
	_, err := tr.Load(path)
	if err == nil {
		t.Fatal("expected error for corrupt image")
	}

	var decodeErr *capture.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Errorf("error type = %T, want *capture.DecodeError", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	tr := New(DefaultQuality, PosterQuality)
	_, err := tr.Load(filepath.Join(t.TempDir(), "missing.png"))

	var decodeErr *capture.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v (%T), want *capture.DecodeError", err, err)
	}
}

func TestEncodePreservesDimensions(t *testing.T) {
	img := makeTestImage(123, 77)

	tr := New(DefaultQuality, PosterQuality)
	enc, err := tr.EncodeImage(img)
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}

	if enc.Width != 123 || enc.Height != 77 {
		t.Errorf("encoded dimensions = %dx%d, want 123x77", enc.Width, enc.Height)
	}
	if len(enc.Data) == 0 {
		t.Fatal("encoded data is empty")
	}

	// Decode the output and verify the pixel grid really kept its size.
	decoded, format, err := image.Decode(bytes.NewReader(enc.Data))
	if err != nil {
		t.Fatalf("cannot decode encoded output: %v", err)
	}
	if format != enc.Format {
		t.Errorf("decoded format = %q, want %q", format, enc.Format)
	}
	if decoded.Bounds().Dx() != 123 || decoded.Bounds().Dy() != 77 {
		t.Errorf("decoded output = %dx%d, want 123x77",
			decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestEncodeFormatMetadata(t *testing.T) {
	tr := New(DefaultQuality, PosterQuality)
	enc, err := tr.EncodeImage(makeTestImage(32, 32))
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}

	switch enc.Format {
	case "webp":
		if enc.ContentType != "image/webp" || enc.Ext != ".webp" {
			t.Errorf("webp metadata = %q/%q", enc.ContentType, enc.Ext)
		}
	case "jpeg":
		if enc.ContentType != "image/jpeg" || enc.Ext != ".jpg" {
			t.Errorf("jpeg metadata = %q/%q", enc.ContentType, enc.Ext)
		}
	default:
		t.Errorf("unexpected format %q", enc.Format)
	}
}

func TestEncodePoster(t *testing.T) {
	tr := New(DefaultQuality, PosterQuality)
	enc, err := tr.EncodePoster(makeTestImage(64, 48))
	if err != nil {
		t.Fatalf("EncodePoster failed: %v", err)
	}
	if enc.Width != 64 || enc.Height != 48 {
		t.Errorf("poster dimensions = %dx%d, want 64x48", enc.Width, enc.Height)
	}
}

func TestNewClampsQuality(t *testing.T) {
	tests := []struct {
		quality, poster         float64
		wantQuality, wantPoster float64
	}{
		{0, 0, DefaultQuality, PosterQuality},
		{-1, 2, DefaultQuality, PosterQuality},
		{0.5, 0.9, 0.5, 0.9},
		{1, 1, 1, 1},
	}

	for _, tt := range tests {
		tr := New(tt.quality, tt.poster)
		if tr.quality != tt.wantQuality {
			t.Errorf("New(%v, %v).quality = %v, want %v", tt.quality, tt.poster, tr.quality, tt.wantQuality)
		}
		if tr.posterQuality != tt.wantPoster {
			t.Errorf("New(%v, %v).posterQuality = %v, want %v", tt.quality, tt.poster, tr.posterQuality, tt.wantPoster)
		}
	}
}

func TestEncodeErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &EncodeError{Format: "webp", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("EncodeError does not unwrap to inner error")
	}
	if err.Error() == "" {
		t.Error("EncodeError has empty message")
	}
}
