package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"time"

	"product-media/internal/logging"
	"product-media/internal/metrics"

	_ "image/png" // ffmpeg frame output is piped as PNG
)

// DefaultTimeout bounds a single frame extraction. Decoders can hang on
// malformed input, so capture is never allowed to run unbounded.
const DefaultTimeout = 10 * time.Second

// Surface is an in-memory decoded frame: the handoff between capture and
// encoding. It is ephemeral and consumed immediately by the transcoder.
type Surface struct {
	Image  image.Image
	Width  int
	Height int
}

// DecodeError reports that a video could not be loaded, probed, or seeked.
// Callers degrade to "no derived thumbnail"; a DecodeError never aborts the
// surrounding upload.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("video decode failed for %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// VideoInfo contains probed information about a video file.
type VideoInfo struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Codec    string  `json:"codec"`
}

// Capturer extracts still frames from video files using ffmpeg.
type Capturer struct {
	timeout time.Duration
}

// New creates a Capturer. A non-positive timeout falls back to DefaultTimeout.
func New(timeout time.Duration) *Capturer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Capturer{timeout: timeout}
}

// ffprobe output shape (only the fields we read)
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe retrieves codec and dimension information for a video file.
func (c *Capturer) Probe(ctx context.Context, path string) (*VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("ffprobe: %w - %s", err, stderr.String())}
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("ffprobe output: %w", err)}
	}

	info := &VideoInfo{}
	if out.Format.Duration != "" {
		info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	}
	for _, s := range out.Streams {
		if s.CodecType == "video" {
			info.Codec = s.CodecName
			info.Width = s.Width
			info.Height = s.Height
			break
		}
	}

	if info.Width == 0 || info.Height == 0 {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("no decodable video stream")}
	}

	return info, nil
}

// Capture extracts one frame at the given seek offset and returns it as a
// Surface sized to the frame's native resolution. A zero seek targets the
// first frame.
//
// Some containers refuse a seeked extract near the start of the stream; a
// second pass without the seek covers those. This mirrors the settle-delay
// workaround in the browser-side ancestor of this pipeline and shares its
// caveat: the first decodable frame may occasionally be black.
func (c *Capturer) Capture(ctx context.Context, path string, seek time.Duration) (*Surface, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	data, err := c.extractFrame(ctx, path, seek)
	if err != nil && seek > 0 {
		logging.Debug("Seeked frame extract failed for %s: %v, retrying from start", path, err)
		metrics.CaptureRetriesTotal.Inc()
		data, err = c.extractFrame(ctx, path, 0)
	}
	metrics.CaptureFFmpegDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return nil, &DecodeError{Path: path, Err: ctx.Err()}
		}
		return nil, &DecodeError{Path: path, Err: err}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("decode extracted frame: %w", err)}
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		// Never hand a zero-sized surface to the transcoder silently.
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("extracted frame is zero-sized")}
	}

	logging.Debug("Captured frame from %s: %dx%d", path, bounds.Dx(), bounds.Dy())

	return &Surface{
		Image:  img,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// extractFrame runs one ffmpeg pass and returns the raw PNG bytes.
func (c *Capturer) extractFrame(ctx context.Context, path string, seek time.Duration) ([]byte, error) {
	args := []string{"-i", path}
	if seek > 0 {
		args = append(args, "-ss", formatSeek(seek))
	}
	args = append(args,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w, stderr: %s", err, stderr.String())
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output")
	}

	return stdout.Bytes(), nil
}

// formatSeek renders a duration as fractional seconds for ffmpeg's -ss flag.
func formatSeek(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// Available reports whether ffmpeg is present on PATH.
func Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}
