package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/zombor/barcode-scanner/internal/capture"
	"github.com/zombor/barcode-scanner/internal/config"
	"github.com/zombor/barcode-scanner/internal/journal"
	"github.com/zombor/barcode-scanner/internal/scan"
	"github.com/zombor/barcode-scanner/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	cfg, usage, err := config.Parse(os.Args[1:], ".env")
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			fmt.Fprintf(os.Stderr, "%s\n", usage)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "%s\n", usage)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	closeLog := setupLogging(cfg.LogLevel, cfg.LogFile)
	code := run(cfg)
	closeLog()
	os.Exit(code)
}

func run(cfg *config.Config) int {
	// Initialize journal
	var db journal.DB
	if cfg.Journal != "" {
		bolt, err := journal.NewBoltDB(cfg.Journal)
		if err != nil {
			slog.Error("Failed to initialize journal", "error", err)
			return 1
		}
		defer bolt.Close()
		db = bolt
	}

	if cfg.History || cfg.Attempt != "" {
		if db == nil {
			slog.Error("Reading the journal requires --journal")
			return 1
		}
		reader := scan.NewService(nil, db, "", "")
		if cfg.Attempt != "" {
			return printAttempt(reader, cfg.Attempt)
		}
		return printHistory(reader)
	}

	// Initialize decoder based on type
	decoder, err := newDecoder(cfg)
	if err != nil {
		slog.Error("Failed to initialize decoder", "decoder", cfg.Decoder, "error", err)
		return 1
	}
	defer decoder.Close()

	loop := &scan.Loop{
		Open:      capture.Open(cfg.Source),
		Decoder:   decoder,
		Config:    cfg.Confirm(),
		Observer:  scan.LogObserver{},
		MaxMisses: cfg.MaxMisses,
	}
	service := scan.NewService(loop, db, cfg.Source, cfg.Decoder)

	// Interrupt stops the scan at the next frame, like pressing 'q'
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	attempt, err := service.Scan(ctx)
	if err != nil {
		slog.Warn("Scan finished but was not journaled", "error", err)
	}
	if throttled, ok := decoder.(*scanning.Throttled); ok && throttled.Skipped() > 0 {
		slog.Info("Frames skipped by the remote decoder rate limit", "skipped", throttled.Skipped())
	}

	if err := writeJSON(attempt); err != nil {
		slog.Error("Failed to write result", "error", err)
		return 1
	}

	if attempt.Result.Candidate == nil {
		return 2
	}
	return 0
}

func newDecoder(cfg *config.Config) (scanning.Decoder, error) {
	switch cfg.Decoder {
	case "zxing":
		slog.Info("Initializing ZXing decoder...", "try_harder", cfg.TryHarder)
		return scanning.NewZXing(cfg.TryHarder), nil
	case "opencv":
		slog.Info("Initializing OpenCV QR decoder...")
		return scanning.NewOpenCVQR(), nil
	case "gemini":
		slog.Info("Initializing Gemini decoder...", "model", cfg.GeminiModel, "rate", cfg.RemoteRate)
		gemini, err := scanning.NewGemini(cfg.GeminiKey, cfg.GeminiModel, cfg.RemoteWait)
		if err != nil {
			return nil, err
		}
		return scanning.NewThrottled(gemini, cfg.RemoteRate, 1), nil
	case "ollama":
		slog.Info("Initializing Ollama decoder...", "url", cfg.OllamaURL, "model", cfg.OllamaModel, "rate", cfg.RemoteRate)
		ollama, err := scanning.NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.RemoteWait)
		if err != nil {
			return nil, err
		}
		return scanning.NewThrottled(ollama, cfg.RemoteRate, 1), nil
	default:
		return nil, fmt.Errorf("invalid decoder type %q, valid: zxing, opencv, gemini or ollama", cfg.Decoder)
	}
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAttempt(reader *scan.Service, id string) int {
	attempt, err := reader.Attempt(id)
	if errors.Is(err, journal.ErrNotFound) {
		slog.Error("No such attempt", "attempt", id)
		return 1
	}
	if err != nil {
		slog.Error("Failed to read journal", "error", err)
		return 1
	}
	if err := writeJSON(attempt); err != nil {
		slog.Error("Failed to write attempt", "error", err)
		return 1
	}
	return 0
}

func printHistory(reader *scan.Service) int {
	attempts, err := reader.History()
	if err != nil {
		slog.Error("Failed to read journal", "error", err)
		return 1
	}
	for _, a := range attempts {
		fmt.Printf("%s  %s  %-9s %-10s %s (%d votes, %d frames)\n",
			a.StartedAt.Format("2006-01-02 15:04:05"),
			a.ID,
			a.Result.Kind,
			a.Result.Status,
			orNone(a.Result.Value()),
			a.Result.Votes,
			a.Result.Frames,
		)
	}
	return 0
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// setupLogging installs the default slog logger. Text goes to stderr so
// stdout carries only the result; with a log file, JSON lines are also
// written there and rotated.
func setupLogging(level, file string) func() {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if file == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
		return func() {}
	}

	rotator := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stderr, rotator), opts)))
	return func() { rotator.Close() }
}
