package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Pdftoppm rasterizes documents with poppler's pdftoppm.
type Pdftoppm struct {
	Path    string
	Timeout time.Duration
}

// Rasterize writes one PNG per page into a temporary directory.
func (p *Pdftoppm) Rasterize(ctx context.Context, pdfPath string, dpi int) ([]string, func(), error) {
	dir, err := os.MkdirTemp("", "scanfill-ocr-")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	prefix := filepath.Join(dir, "page")
	if _, err := run(ctx, p.Timeout, p.Path, "-png", "-r", strconv.Itoa(dpi), pdfPath, prefix); err != nil {
		return nil, cleanup, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to list rendered pages: %w", err)
	}

	var pages []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "page") && strings.HasSuffix(name, ".png") {
			pages = append(pages, filepath.Join(dir, name))
		}
	}
	sort.Strings(pages)

	return pages, cleanup, nil
}

// Tesseract recognizes page images with the tesseract CLI.
type Tesseract struct {
	Path    string
	Timeout time.Duration
}

// Recognize prints the recognized text of imagePath.
func (t *Tesseract) Recognize(ctx context.Context, imagePath, languages string) (string, error) {
	out, err := run(ctx, t.Timeout, t.Path, imagePath, "stdout", "-l", languages)
	if err != nil {
		return "", err
	}
	return out, nil
}

// NewSubprocessEngine builds an Engine backed by pdftoppm and tesseract.
func NewSubprocessEngine(cfg Config) *Engine {
	cfg = cfg.normalize()
	return NewEngine(cfg,
		&Pdftoppm{Path: cfg.PdftoppmPath, Timeout: cfg.Timeout},
		&Tesseract{Path: cfg.TesseractPath, Timeout: cfg.Timeout},
		nil)
}

func run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // binary comes from configuration
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s: %w", name, ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}

	return stdout.String(), nil
}
