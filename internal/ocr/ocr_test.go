package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRasterizer struct {
	err      error
	pages    []string
	calls    int
	cleanups int
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _ string, _ int) ([]string, func(), error) {
	f.calls++
	return f.pages, func() { f.cleanups++ }, f.err
}

type fakeRecognizer struct {
	texts map[string]string
	err   error
	langs string
}

func (f *fakeRecognizer) Recognize(_ context.Context, imagePath, languages string) (string, error) {
	f.langs = languages
	if f.err != nil {
		return "", f.err
	}
	return f.texts[imagePath], nil
}

func TestEngine_Recognize(t *testing.T) {
	raster := &fakeRasterizer{pages: []string{"p1.png", "p2.png"}}
	recog := &fakeRecognizer{texts: map[string]string{"p1.png": "Total TTC", "p2.png": "42,00 EUR"}}

	engine := NewEngine(Config{}, raster, recog, nil)
	text, err := engine.Recognize(context.Background(), "scan.pdf")

	require.NoError(t, err)
	assert.Equal(t, "Total TTC\n42,00 EUR\n", text)
	assert.Equal(t, "fra+eng", recog.langs)
	assert.Equal(t, 1, raster.cleanups)
}

func TestEngine_RecognizeErrors(t *testing.T) {
	tests := []struct {
		raster *fakeRasterizer
		recog  *fakeRecognizer
		name   string
	}{
		{
			name:   "rasterize failure",
			raster: &fakeRasterizer{err: errors.New("boom")},
			recog:  &fakeRecognizer{},
		},
		{
			name:   "recognize failure",
			raster: &fakeRasterizer{pages: []string{"p1.png"}},
			recog:  &fakeRecognizer{err: errors.New("boom")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(Config{}, tt.raster, tt.recog, nil)
			_, err := engine.Recognize(context.Background(), "scan.pdf")
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrOCRFailure)
			assert.Equal(t, 1, tt.raster.cleanups)
		})
	}
}

func TestEngine_BreakerOpens(t *testing.T) {
	raster := &fakeRasterizer{err: errors.New("pdftoppm: executable file not found")}
	engine := NewEngine(Config{BreakerMinRequests: 2}, raster, &fakeRecognizer{}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := engine.Recognize(ctx, "scan.pdf")
		require.ErrorIs(t, err, common.ErrOCRFailure)
	}
	assert.Equal(t, 2, raster.calls)

	_, err := engine.Recognize(ctx, "scan.pdf")
	require.ErrorIs(t, err, common.ErrOCRFailure)
	assert.Equal(t, 2, raster.calls, "open breaker must not call the rasterizer")
}

func TestEngine_CanceledDoesNotTrip(t *testing.T) {
	raster := &fakeRasterizer{pages: []string{"p1.png"}}
	engine := NewEngine(Config{BreakerMinRequests: 1}, raster, &fakeRecognizer{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 3; i++ {
		_, err := engine.Recognize(ctx, "scan.pdf")
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 3, raster.calls)
}

func TestSubprocess_MissingBinary(t *testing.T) {
	p := &Pdftoppm{Path: "scanfill-no-such-binary"}
	_, cleanup, err := p.Rasterize(context.Background(), "x.pdf", 300)
	if cleanup != nil {
		cleanup()
	}
	require.Error(t, err)

	tess := &Tesseract{Path: "scanfill-no-such-binary"}
	_, err = tess.Recognize(context.Background(), "x.png", "eng")
	require.Error(t, err)
}

func TestConfig_Normalize(t *testing.T) {
	cfg := Config{DPI: 150}.normalize()
	assert.Equal(t, 150, cfg.DPI)
	assert.Equal(t, "fra+eng", cfg.Languages)
	assert.Equal(t, "pdftoppm", cfg.PdftoppmPath)
	assert.Equal(t, DefaultConfig().Timeout, cfg.Timeout)
}
