// Package extractor turns a PDF into an extraction result, reading the text
// layer first and falling back to cached or fresh OCR for scanned documents.
package extractor

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Veraticus/scanfill/internal/classification"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/Veraticus/scanfill/internal/service"
)

// DefaultMinTextLength is the trimmed text length below which a document is
// treated as scanned.
const DefaultMinTextLength = 100

// OCR outcomes reported to a Recorder.
const (
	OCRCacheHit    = "cache_hit"
	OCRRecognized  = "recognized"
	OCRFailed      = "failed"
	OCRUnavailable = "unavailable"
)

// TextSource reads the embedded text of a document.
type TextSource interface {
	Text(ctx context.Context, path string) (string, error)
}

// Recognizer runs OCR over a whole document.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// Hasher computes content hashes used as OCR cache keys.
type Hasher interface {
	Sum(path string) (string, error)
}

// Recorder observes OCR outcomes.
type Recorder interface {
	RecordOCR(outcome string)
}

// Config tunes scanned-document detection.
type Config struct {
	MinTextLength int `mapstructure:"min_text_length"`
}

// Extractor implements the per-document extraction contract.
type Extractor struct {
	text          TextSource
	ocr           Recognizer
	hasher        Hasher
	cache         service.OCRCache
	classifier    *classification.Classifier
	recorder      Recorder
	logger        *slog.Logger
	minTextLength int
}

// New creates an extractor. ocr, hasher and cache may be nil: without a
// recognizer scanned documents are classified on whatever text they have,
// and without a hasher or cache OCR always runs.
func New(cfg Config, classifier *classification.Classifier, text TextSource, ocr Recognizer, hasher Hasher, cache service.OCRCache, logger *slog.Logger) *Extractor {
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = DefaultMinTextLength
	}
	if text == nil {
		text = PDFText{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		text:          text,
		ocr:           ocr,
		hasher:        hasher,
		cache:         cache,
		classifier:    classifier,
		logger:        logger,
		minTextLength: cfg.MinTextLength,
	}
}

// SetRecorder attaches an OCR outcome observer.
func (e *Extractor) SetRecorder(r Recorder) {
	e.recorder = r
}

// ExtractAmount never returns an error: unreadable documents and OCR
// failures become failed results carrying a message.
func (e *Extractor) ExtractAmount(ctx context.Context, path, customPattern string) model.ExtractionResult {
	text, usedOCR, err := e.DocumentText(ctx, path)
	if err != nil {
		e.logger.Warn("Failed to read document", "file", path, "error", err)
		result := model.FailedResult("%v", err)
		result.UsedOCR = usedOCR
		return result
	}

	result := e.classifier.FindAmount(text, customPattern)
	result.UsedOCR = usedOCR
	return result
}

// DocumentText returns the text the classifier sees and whether OCR supplied it.
func (e *Extractor) DocumentText(ctx context.Context, path string) (string, bool, error) {
	text, err := e.text.Text(ctx, path)
	if err != nil {
		return "", false, err
	}

	trimmed := len([]rune(strings.TrimSpace(text)))
	if trimmed >= e.minTextLength {
		return text, false, nil
	}

	if e.ocr == nil {
		e.record(OCRUnavailable)
		e.logger.Debug("Document looks scanned but OCR is disabled", "file", path, "length", trimmed)
		return text, false, nil
	}

	e.logger.Debug("Text layer too short, running OCR", "file", path, "length", trimmed)
	ocrText, err := e.recognize(ctx, path)
	if err != nil {
		return "", true, err
	}
	return ocrText, true, nil
}

func (e *Extractor) recognize(ctx context.Context, path string) (string, error) {
	hash := e.contentHash(path)

	if hash != "" && e.cache != nil {
		record, err := e.cache.GetOCRText(ctx, hash)
		switch {
		case err != nil:
			e.logger.Warn("OCR cache read failed", "file", path, "error", err)
		case record != nil:
			e.record(OCRCacheHit)
			e.logger.Debug("Using cached OCR result", "file", path, "characters", len(record.Text))
			return record.Text, nil
		}
	}

	text, err := e.ocr.Recognize(ctx, path)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			e.record(OCRFailed)
		}
		return "", err
	}
	e.record(OCRRecognized)

	if hash != "" && e.cache != nil {
		record := &model.OCRRecord{Hash: hash, FileName: filepath.Base(path), Text: text}
		if err := e.cache.SaveOCRText(ctx, record); err != nil {
			e.logger.Warn("OCR cache write failed", "file", path, "error", err)
		}
	}

	return text, nil
}

func (e *Extractor) contentHash(path string) string {
	if e.hasher == nil {
		return ""
	}
	hash, err := e.hasher.Sum(path)
	if err != nil {
		e.logger.Warn("Failed to hash document", "file", path, "error", err)
		return ""
	}
	return hash
}

func (e *Extractor) record(outcome string) {
	if e.recorder != nil {
		e.recorder.RecordOCR(outcome)
	}
}
