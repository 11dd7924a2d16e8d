// Package ocr recognizes text in scanned PDFs by rasterizing pages and
// running an external recognizer over each image.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/sony/gobreaker/v2"
)

// Rasterizer turns a PDF into one image per page.
// The returned cleanup removes the images and must always be called.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string, dpi int) (pages []string, cleanup func(), err error)
}

// Recognizer extracts text from a single page image.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath, languages string) (string, error)
}

// Config controls rasterization, recognition and the failure breaker.
type Config struct {
	Languages           string        `mapstructure:"languages"`
	PdftoppmPath        string        `mapstructure:"pdftoppm"`
	TesseractPath       string        `mapstructure:"tesseract"`
	DPI                 int           `mapstructure:"dpi"`
	Timeout             time.Duration `mapstructure:"timeout"`
	BreakerMinRequests  uint32        `mapstructure:"breaker_min_requests"`
	BreakerFailureRatio float64       `mapstructure:"breaker_failure_ratio"`
	BreakerOpenTimeout  time.Duration `mapstructure:"breaker_open_timeout"`
}

// DefaultConfig returns 300 DPI French+English recognition.
func DefaultConfig() Config {
	return Config{
		Languages:           "fra+eng",
		PdftoppmPath:        "pdftoppm",
		TesseractPath:       "tesseract",
		DPI:                 300,
		Timeout:             2 * time.Minute,
		BreakerMinRequests:  3,
		BreakerFailureRatio: 1,
		BreakerOpenTimeout:  time.Minute,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.Languages == "" {
		c.Languages = def.Languages
	}
	if c.PdftoppmPath == "" {
		c.PdftoppmPath = def.PdftoppmPath
	}
	if c.TesseractPath == "" {
		c.TesseractPath = def.TesseractPath
	}
	if c.DPI <= 0 {
		c.DPI = def.DPI
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = def.BreakerMinRequests
	}
	if c.BreakerFailureRatio <= 0 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	return c
}

// Engine runs OCR over whole documents. Once enough consecutive documents
// fail (typically because a binary is missing) the breaker opens and
// further calls fail fast until the open timeout elapses.
type Engine struct {
	rasterizer Rasterizer
	recognizer Recognizer
	breaker    *gobreaker.CircuitBreaker[string]
	logger     *slog.Logger
	cfg        Config
}

// NewEngine wires a rasterizer and recognizer behind a circuit breaker.
func NewEngine(cfg Config, rasterizer Rasterizer, recognizer Recognizer, logger *slog.Logger) *Engine {
	cfg = cfg.normalize()
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        "ocr",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("OCR circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &Engine{
		rasterizer: rasterizer,
		recognizer: recognizer,
		breaker:    gobreaker.NewCircuitBreaker[string](settings),
		logger:     logger,
		cfg:        cfg,
	}
}

// Recognize returns the text of every page in order, each followed by a newline.
func (e *Engine) Recognize(ctx context.Context, pdfPath string) (string, error) {
	text, err := e.breaker.Execute(func() (string, error) {
		return e.recognize(ctx, pdfPath)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: recognizer unavailable: %w", common.ErrOCRFailure, err)
		}
		return "", err
	}
	return text, nil
}

func (e *Engine) recognize(ctx context.Context, pdfPath string) (string, error) {
	start := time.Now()

	pages, cleanup, err := e.rasterizer.Rasterize(ctx, pdfPath, e.cfg.DPI)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return "", fmt.Errorf("%w: failed to rasterize %s: %w", common.ErrOCRFailure, pdfPath, err)
	}

	e.logger.Debug("Running OCR", "file", pdfPath, "pages", len(pages))

	var sb strings.Builder
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := e.recognizer.Recognize(ctx, page, e.cfg.Languages)
		if err != nil {
			return "", fmt.Errorf("%w: failed to recognize %s: %w", common.ErrOCRFailure, page, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	e.logger.Debug("OCR completed",
		"file", pdfPath,
		"characters", sb.Len(),
		"duration", time.Since(start))

	return sb.String(), nil
}
