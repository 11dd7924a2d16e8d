package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// fakeSheetsAPI serves the handful of Sheets endpoints the sink calls.
type fakeSheetsAPI struct {
	ranges     map[string][][]any
	written    []*sheets.ValueRange
	mu         sync.Mutex
	status     int
	formatReqs int
	calls      int
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"nope"}}`, f.status)
		return
	}

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		_ = json.NewEncoder(w).Encode(&sheets.ValueRange{Range: rng, Values: f.ranges[rng]})
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(&sheets.Spreadsheet{Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{SheetId: 7, Title: "2026"}},
			{Properties: &sheets.SheetProperties{SheetId: 9, Title: "Notes"}},
		}})
	case strings.HasSuffix(path, "/values:batchUpdate"):
		var req sheets.BatchUpdateValuesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.written = append(f.written, req.Data...)
		_, _ = w.Write([]byte(`{}`))
	case strings.HasSuffix(path, ":batchUpdate"):
		var req sheets.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.formatReqs += len(req.Requests)
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestGoogleSink(t *testing.T, api *fakeSheetsAPI) *GoogleSink {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	return &GoogleSink{
		service: svc,
		logger:  slog.Default(),
		config:  GoogleConfig{RetryAttempts: 1, RetryDelay: time.Millisecond},
	}
}

func googleTarget() model.SheetConfig {
	return model.SheetConfig{
		Kind:           model.SheetKindGoogle,
		SpreadsheetID:  "sheet-id",
		SheetName:      "2026",
		MonthStartCell: "B1",
		CategoryColumn: "A",
		CategoryRows:   map[string]int{"Transport": 2, "Repas": 4},
	}
}

func TestGoogleSink_UpdateSheet(t *testing.T) {
	api := &fakeSheetsAPI{ranges: map[string][][]any{
		"'2026'!B1": {{"Février"}},
	}}
	sink := newTestGoogleSink(t, api)

	err := sink.UpdateSheet(context.Background(), googleTarget(), map[string]map[string]float64{
		"february": {"Transport": 12.5},
		"march":    {"Repas": 3, "Unknown": 1},
	})
	require.NoError(t, err)

	require.Len(t, api.written, 2)
	assert.Equal(t, "'2026'!B2", api.written[0].Range)
	assert.Equal(t, [][]any{{12.5}}, api.written[0].Values)
	assert.Equal(t, "'2026'!C4", api.written[1].Range)
	assert.Equal(t, [][]any{{float64(3)}}, api.written[1].Values)
	assert.Equal(t, 2, api.formatReqs)
}

func TestGoogleSink_UpdateSheetMissingTab(t *testing.T) {
	sink := newTestGoogleSink(t, &fakeSheetsAPI{})

	target := googleTarget()
	target.SheetName = "2027"
	err := sink.UpdateSheet(context.Background(), target, map[string]map[string]float64{"january": {"Transport": 1}})
	assert.ErrorIs(t, err, common.ErrWorksheetNotFound)
}

func TestGoogleSink_Metadata(t *testing.T) {
	api := &fakeSheetsAPI{ranges: map[string][][]any{
		"'2026'!A:A":   {{"Category"}, {"Transport"}, {}, {"Repas"}, {float64(5)}},
		"'2026'!B1:M1": {{"Janvier", "Février", "Total"}},
	}}
	sink := newTestGoogleSink(t, api)

	meta, err := sink.Metadata(context.Background(), googleTarget())
	require.NoError(t, err)

	assert.Equal(t, []string{"2026", "Notes"}, meta.Tabs)
	assert.Equal(t, "2026", meta.Sheet)
	assert.Equal(t, []CategoryLabel{
		{Label: "Category", Address: "A1", Row: 1},
		{Label: "Transport", Address: "A2", Row: 2},
		{Label: "Repas", Address: "A4", Row: 4},
	}, meta.Categories)
	require.Len(t, meta.Months, 2)
	assert.Equal(t, "C1", meta.Months[1].Address)
}

func TestGoogleSink_NotFound(t *testing.T) {
	api := &fakeSheetsAPI{status: http.StatusNotFound}
	sink := newTestGoogleSink(t, api)
	sink.config.RetryAttempts = 3

	_, err := sink.Metadata(context.Background(), googleTarget())
	assert.ErrorIs(t, err, common.ErrFileNotFound)
	assert.Equal(t, 1, api.calls)
}

func TestClassify(t *testing.T) {
	plain := errors.New("boom")

	tests := []struct {
		err       error
		wantIs    error
		name      string
		retryable bool
	}{
		{name: "rate limited", err: &googleapi.Error{Code: http.StatusTooManyRequests}, wantIs: common.ErrRateLimit, retryable: true},
		{name: "server error", err: &googleapi.Error{Code: http.StatusBadGateway}, retryable: true},
		{name: "not found", err: &googleapi.Error{Code: http.StatusNotFound}, wantIs: common.ErrFileNotFound},
		{name: "forbidden", err: &googleapi.Error{Code: http.StatusForbidden}},
		{name: "not an API error", err: plain, wantIs: plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, "sheet-id")
			if tt.wantIs != nil {
				assert.ErrorIs(t, got, tt.wantIs)
			}
			assert.Equal(t, tt.retryable, common.IsRetryable(got))
		})
	}

	assert.NoError(t, classify(nil, "sheet-id"))
}

func TestQuoteSheet(t *testing.T) {
	assert.Equal(t, "'2026'", quoteSheet("2026"))
	assert.Equal(t, "'Jim''s'", quoteSheet("Jim's"))
}
