// Package config parses command-line flags, environment variables and an
// optional .env file into a validated Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/barcode-scanner/internal/confirm"
)

// EnvVarPrefix prefixes every environment variable, e.g. BARCODE_SCAN_THRESHOLD.
const EnvVarPrefix = "BARCODE_SCAN"

// Config holds all runtime options
type Config struct {
	Source    string        `validate:"required"`
	Threshold int           `validate:"min=1"`
	Timeout   time.Duration `validate:"gt=0"`
	Window    int           `validate:"min=0"`
	MinLength int           `validate:"min=0"`
	MaxMisses int           `validate:"min=0"`

	Decoder     string        `validate:"oneof=zxing opencv gemini ollama"`
	TryHarder   bool
	GeminiKey   string        `validate:"required_if=Decoder gemini"`
	GeminiModel string
	OllamaURL   string        `validate:"omitempty,url"`
	OllamaModel string
	RemoteRate  float64       `validate:"gt=0"`
	RemoteWait  time.Duration `validate:"gt=0"`

	Journal string
	History bool
	Attempt string

	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string

	Version bool
}

// Confirm returns the confirmation settings
func (c *Config) Confirm() confirm.Config {
	return confirm.Config{
		Threshold: c.Threshold,
		Timeout:   c.Timeout,
		Window:    c.Window,
		MinLength: c.MinLength,
	}
}

// ErrHelp is returned when the user asked for usage
var ErrHelp = ff.ErrHelp

// Parse reads args, then BARCODE_SCAN_* variables, loading envFile into the
// environment first when it exists. The returned usage text is meant for
// printing alongside a parse error.
func Parse(args []string, envFile string) (*Config, string, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	defaults := confirm.DefaultConfig()
	fs := ff.NewFlagSet("barcode-scan")
	var (
		source      = fs.StringLong("source", "0", "Camera index, video file/URL, or directory of images/PDFs")
		threshold   = fs.IntLong("threshold", defaults.Threshold, "Votes needed to confirm a barcode")
		timeout     = fs.DurationLong("timeout", defaults.Timeout, "Maximum duration of one scanning attempt")
		window      = fs.IntLong("window", 0, "Confirm on the last N reads only (0 counts every read)")
		minLength   = fs.IntLong("min-length", 0, "Ignore reads shorter than this many characters")
		maxMisses   = fs.IntLong("max-misses", 0, "Consecutive failed frame grabs that end the attempt (0 for the built-in limit)")
		decoder     = fs.StringLong("decoder", "zxing", "Decoder: 'zxing', 'opencv', 'gemini' or 'ollama'")
		tryHarder   = fs.BoolLong("try-harder", "Spend more time per frame in the zxing decoder")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		remoteRate  = fs.Float64Long("remote-rate", 2, "Maximum remote decoder calls per second")
		remoteWait  = fs.DurationLong("remote-timeout", 10*time.Second, "Timeout of one remote decoder call")
		journalPath = fs.StringLong("journal", "scans.db", "Attempt journal file path (empty to disable)")
		history     = fs.BoolLong("history", "Print the attempt journal and exit")
		attempt     = fs.StringLong("attempt", "", "Print one journaled attempt by ID and exit")
		logLevel    = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFile     = fs.StringLong("log-file", "", "Also write JSON logs to this file, rotated")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	usage := ffhelp.Flags(fs).String()

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(EnvVarPrefix)); err != nil {
		return nil, usage, err
	}

	cfg := Config{
		Source:      strings.TrimSpace(*source),
		Threshold:   *threshold,
		Timeout:     *timeout,
		Window:      *window,
		MinLength:   *minLength,
		MaxMisses:   *maxMisses,
		Decoder:     strings.ToLower(strings.TrimSpace(*decoder)),
		TryHarder:   *tryHarder,
		GeminiKey:   *geminiKey,
		GeminiModel: *geminiModel,
		OllamaURL:   *ollamaURL,
		OllamaModel: *ollamaModel,
		RemoteRate:  *remoteRate,
		RemoteWait:  *remoteWait,
		Journal:     *journalPath,
		History:     *history,
		Attempt:     strings.TrimSpace(*attempt),
		LogLevel:    strings.ToLower(strings.TrimSpace(*logLevel)),
		LogFile:     *logFile,
		Version:     *showVersion,
	}

	if cfg.GeminiKey == "" {
		cfg.GeminiKey = os.Getenv("GEMINI_API_KEY")
	}

	if cfg.Version || cfg.History || cfg.Attempt != "" {
		return &cfg, usage, nil
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, usage, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Window > 0 && cfg.Threshold > cfg.Window {
		return nil, usage, fmt.Errorf("invalid configuration: threshold %d can never be reached in a window of %d", cfg.Threshold, cfg.Window)
	}
	return &cfg, usage, nil
}
