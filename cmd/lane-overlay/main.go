package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ironsheep/lane-overlay/internal/api"
	"github.com/ironsheep/lane-overlay/internal/config"
	"github.com/ironsheep/lane-overlay/internal/imaging"
	"github.com/ironsheep/lane-overlay/internal/logging"
	"github.com/ironsheep/lane-overlay/internal/pipeline"
	"github.com/ironsheep/lane-overlay/internal/server"
	"github.com/ironsheep/lane-overlay/internal/video"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd := "mcp"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "--version", "-v", "version":
		fmt.Printf("lane-overlay %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		printUsage()
		return
	}

	// Logs go to stderr; stdout is for MCP protocol
	boot := logging.NewConsole("info", os.Stderr)
	cfg := config.Load(boot)
	logger := logging.NewConsole(cfg.LogLevel, os.Stderr)
	processor := pipeline.New(cfg.PipelineParams(logger), logger)

	var err error
	switch cmd {
	case "mcp":
		logger.Debug().Str("version", Version).Str("commit", GitCommit).Msg("Lane overlay MCP server")
		err = server.New(processor, logger, Version).Run(context.Background())
	case "serve":
		err = serve(cfg, processor, logger)
	case "process":
		if len(os.Args) != 4 {
			fmt.Fprintln(os.Stderr, "usage: lane-overlay process <input> <output>")
			os.Exit(2)
		}
		err = processFile(processor, os.Args[2], os.Args[3], logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal().Err(err).Str("command", cmd).Msg("Command failed")
	}
}

func printUsage() {
	fmt.Println("lane-overlay - lane line detection for road images and GIF clips")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  lane-overlay [mcp]                     Run the MCP server on stdin/stdout (default)")
	fmt.Println("  lane-overlay serve                     Run the HTTP upload server")
	fmt.Println("  lane-overlay process <input> <output>  Annotate a .png/.jpg/.jpeg/.gif file")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from .env):")
	fmt.Println("  LANE_LOG_LEVEL=debug          Log level (debug, info, warn, error)")
	fmt.Println("  LANE_HTTP_PORT=5000           HTTP port for serve")
	fmt.Println("  LANE_MAX_UPLOAD_BYTES=...     Upload size limit for serve")
	fmt.Println("  LANE_LINE_COLOR=#FF0000       Lane line color")
	fmt.Println("  LANE_LINE_THICKNESS=12        Lane line thickness in pixels")
	fmt.Println("  LANE_CANNY_LOW/HIGH=50/100    Edge thresholds")
	fmt.Println("  LANE_HOUGH_THRESHOLD=20       Hough vote threshold")
	fmt.Println("  LANE_HOUGH_MIN_LENGTH=20      Minimum segment length")
	fmt.Println("  LANE_HOUGH_MAX_GAP=500        Maximum gap within a segment")
	fmt.Println("  LANE_BAND_TOP=0.6             Top of the lane band, fraction of height")
}

func serve(cfg *config.Config, processor *pipeline.Processor, logger zerolog.Logger) error {
	srv := api.NewServer(cfg, processor, logger, Version)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	return srv.Stop()
}

func processFile(processor *pipeline.Processor, inPath, outPath string, logger zerolog.Logger) error {
	inFormat, err := imaging.FormatFromFilename(inPath)
	if err != nil {
		return err
	}
	outFormat, err := imaging.FormatFromFilename(outPath)
	if err != nil {
		return err
	}
	if (inFormat == imaging.FormatGIF) != (outFormat == imaging.FormatGIF) {
		return fmt.Errorf("cannot convert between %s and %s", inFormat, outFormat)
	}

	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	if inFormat != imaging.FormatGIF {
		img, err := imaging.Decode(in)
		if err != nil {
			return err
		}
		processed, err := processor.ProcessFrame(img)
		if err != nil {
			return err
		}
		if err := imaging.Encode(out, processed, outFormat); err != nil {
			return err
		}
		logger.Info().Str("output", outPath).Msg("Frame written")
		return out.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	clip, err := video.DecodeGIF(in)
	if err != nil {
		return err
	}
	frames := make([]image.Image, 0, clip.Len())
	for frame, err := range processor.ProcessVideo(clip.Frames()) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			logger.Warn().Err(err).Msg("Dropping frame")
			frames = append(frames, nil)
			continue
		}
		frames = append(frames, frame)
	}
	if err := video.EncodeGIF(ctx, out, frames, clip.Delays); err != nil {
		return err
	}
	logger.Info().Str("output", outPath).Int("frames", len(frames)).Msg("Clip written")
	return out.Close()
}
