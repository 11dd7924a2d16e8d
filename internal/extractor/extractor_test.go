package extractor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/scanfill/internal/classification"
	"github.com/Veraticus/scanfill/internal/common"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const filler = "Lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor incididunt ut labore\n"

type stubText struct {
	err  error
	text string
}

func (s stubText) Text(context.Context, string) (string, error) {
	return s.text, s.err
}

type stubOCR struct {
	err   error
	text  string
	calls int
}

func (s *stubOCR) Recognize(context.Context, string) (string, error) {
	s.calls++
	return s.text, s.err
}

type stubHasher struct {
	err error
}

func (s stubHasher) Sum(path string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "hash-" + filepath.Base(path), nil
}

type memoryOCRCache struct {
	records map[string]*model.OCRRecord
	getErr  error
	saveErr error
}

func newMemoryOCRCache() *memoryOCRCache {
	return &memoryOCRCache{records: make(map[string]*model.OCRRecord)}
}

func (m *memoryOCRCache) GetOCRText(_ context.Context, hash string) (*model.OCRRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.records[hash], nil
}

func (m *memoryOCRCache) SaveOCRText(_ context.Context, record *model.OCRRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[record.Hash] = record
	return nil
}

type countingRecorder struct {
	outcomes []string
}

func (c *countingRecorder) RecordOCR(outcome string) {
	c.outcomes = append(c.outcomes, outcome)
}

func newClassifier() *classification.Classifier {
	return classification.NewClassifier(classification.DefaultTables(), classification.DefaultTieBreak(), nil)
}

func TestExtractor_TextLayer(t *testing.T) {
	text := filler + "Total HT: 100.00\nTVA 20%: 20.00\nTotal TTC: 120.00\n"
	ocr := &stubOCR{}
	ex := New(Config{}, newClassifier(), stubText{text: text}, ocr, stubHasher{}, newMemoryOCRCache(), nil)

	result := ex.ExtractAmount(context.Background(), "/inv/a.pdf", "")

	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.InDelta(t, 120.0, result.Amount, 0.001)
	assert.False(t, result.UsedOCR)
	assert.Equal(t, 0, ocr.calls)
}

func TestExtractor_ScannedUsesOCRAndCache(t *testing.T) {
	ocr := &stubOCR{text: "Total TTC: 120.00\n"}
	cache := newMemoryOCRCache()
	rec := &countingRecorder{}
	ex := New(Config{}, newClassifier(), stubText{text: "  "}, ocr, stubHasher{}, cache, nil)
	ex.SetRecorder(rec)
	ctx := context.Background()

	first := ex.ExtractAmount(ctx, "/inv/scan.pdf", "")
	require.Equal(t, model.StatusSuccess, first.Status)
	assert.True(t, first.UsedOCR)
	assert.InDelta(t, 120.0, first.Amount, 0.001)
	require.Contains(t, cache.records, "hash-scan.pdf")
	assert.Equal(t, "scan.pdf", cache.records["hash-scan.pdf"].FileName)

	second := ex.ExtractAmount(ctx, "/inv/scan.pdf", "")
	assert.Equal(t, first.Amount, second.Amount)
	assert.Equal(t, 1, ocr.calls)
	assert.Equal(t, []string{OCRRecognized, OCRCacheHit}, rec.outcomes)
}

func TestExtractor_CacheFailuresOnlyLog(t *testing.T) {
	ocr := &stubOCR{text: "Total TTC: 42,00 €\n"}
	cache := newMemoryOCRCache()
	cache.getErr = errors.New("db locked")
	cache.saveErr = errors.New("db locked")
	ex := New(Config{}, newClassifier(), stubText{text: ""}, ocr, stubHasher{}, cache, nil)

	result := ex.ExtractAmount(context.Background(), "/inv/scan.pdf", "")
	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.InDelta(t, 42.0, result.Amount, 0.001)
}

func TestExtractor_HashFailureSkipsCache(t *testing.T) {
	ocr := &stubOCR{text: "Total TTC: 42,00 €\n"}
	cache := newMemoryOCRCache()
	ex := New(Config{}, newClassifier(), stubText{text: ""}, ocr, stubHasher{err: errors.New("denied")}, cache, nil)

	result := ex.ExtractAmount(context.Background(), "/inv/scan.pdf", "")
	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.Empty(t, cache.records)
}

func TestExtractor_Failures(t *testing.T) {
	tests := []struct {
		text        TextSource
		ocr         *stubOCR
		name        string
		wantMessage string
		wantOCR     bool
	}{
		{
			name:        "unreadable document",
			text:        stubText{err: common.ErrDocumentUnreadable},
			ocr:         &stubOCR{},
			wantMessage: "document unreadable",
		},
		{
			name:        "ocr failure",
			text:        stubText{text: ""},
			ocr:         &stubOCR{err: common.ErrOCRFailure},
			wantMessage: "ocr failed",
			wantOCR:     true,
		},
		{
			name:        "no numbers at all",
			text:        stubText{text: strings.Repeat(filler, 2)},
			ocr:         &stubOCR{},
			wantMessage: "no amount candidates found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := New(Config{}, newClassifier(), tt.text, tt.ocr, stubHasher{}, nil, nil)
			result := ex.ExtractAmount(context.Background(), "/inv/x.pdf", "")
			assert.Equal(t, model.StatusFailed, result.Status)
			assert.Contains(t, result.Message, tt.wantMessage)
			assert.Equal(t, tt.wantOCR, result.UsedOCR)
		})
	}
}

func TestExtractor_NoRecognizer(t *testing.T) {
	ex := New(Config{MinTextLength: 10}, newClassifier(), stubText{text: "Total 5 €"}, nil, nil, nil, nil)
	result := ex.ExtractAmount(context.Background(), "/inv/x.pdf", "")
	assert.False(t, result.UsedOCR)
	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.InDelta(t, 5.0, result.Amount, 0.001)
}

func TestPDFText_Unreadable(t *testing.T) {
	_, err := PDFText{}.Text(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, common.ErrDocumentUnreadable)
}
