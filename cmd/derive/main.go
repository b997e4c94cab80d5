package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"product-media/internal/capture"
	"product-media/internal/logging"
	"product-media/internal/mediatypes"
	"product-media/internal/transcode"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("derive", flag.ContinueOnError)
	inPath := fs.String("in", "", "input media file (image or video)")
	outPath := fs.String("out", "", "output file (default: <in>-derived.<ext>)")
	quality := fs.Float64("quality", transcode.DefaultQuality, "encode quality for images, 0 to 1")
	posterQuality := fs.Float64("poster-quality", transcode.PosterQuality, "encode quality for video posters, 0 to 1")
	seek := fs.Duration("seek", 0, "video timestamp to capture the poster frame from")
	timeout := fs.Duration("timeout", capture.DefaultTimeout, "frame capture timeout")
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn, error")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Derive a display asset from a local media file.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: derive -in <file> [options]")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *inPath == "" {
		fs.Usage()
		return 1
	}

	logging.SetLevel(logging.ParseLevel(*logLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	if err := transcode.InitVips(); err != nil {
		logging.Warn("libvips initialization failed, falling back to JPEG: %v", err)
	}
	defer transcode.ShutdownVips()

	if err := derive(ctx, *inPath, *outPath, *quality, *posterQuality, *seek, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func derive(ctx context.Context, inPath, outPath string, quality, posterQuality float64, seek, timeout time.Duration) error {
	kind := mediatypes.KindForExtension(strings.ToLower(filepath.Ext(inPath)))
	if !mediatypes.IsSupported(kind) {
		return fmt.Errorf("unsupported media file %q", filepath.Base(inPath))
	}

	transcoder := transcode.New(quality, posterQuality)

	var (
		surface *capture.Surface
		encoded *transcode.Encoded
		err     error
	)

	start := time.Now()
	switch kind {
	case mediatypes.KindVideo:
		capturer := capture.New(timeout)
		surface, err = capturer.Capture(ctx, inPath, seek)
		if err != nil {
			return fmt.Errorf("frame capture failed: %w", err)
		}
		encoded, err = transcoder.EncodePoster(surface.Image)
	default:
		surface, err = transcoder.Load(inPath)
		if err != nil {
			return fmt.Errorf("decode failed: %w", err)
		}
		encoded, err = transcoder.EncodeImage(surface.Image)
	}
	if err != nil {
		return fmt.Errorf("encode failed: %w", err)
	}

	if outPath == "" {
		base := strings.TrimSuffix(inPath, filepath.Ext(inPath))
		outPath = base + "-derived" + encoded.Ext
	}

	if err := os.WriteFile(outPath, encoded.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote %s (%s, %dx%d, %d bytes) in %v\n",
		outPath, encoded.Format, encoded.Width, encoded.Height, len(encoded.Data), time.Since(start))
	return nil
}
