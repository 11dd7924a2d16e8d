package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/scanfill/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Counters(t *testing.T) {
	r := NewRun()

	r.RecordFile("done", 20*time.Millisecond)
	r.RecordFile("done", 30*time.Millisecond)
	r.RecordFile("skipped", time.Millisecond)
	r.RecordOCR("cache_hit")
	r.RecordRun(model.StateReviewResults)

	assert.InDelta(t, 2, testutil.ToFloat64(r.filesTotal.WithLabelValues("done")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(r.filesTotal.WithLabelValues("skipped")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(r.ocrTotal.WithLabelValues("cache_hit")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(r.runsTotal.WithLabelValues("review-results")), 1e-9)
	assert.Equal(t, 2, testutil.CollectAndCount(r.fileDuration))
}

func TestRun_WriteTextfile(t *testing.T) {
	r := NewRun()
	r.RecordFile("failed", time.Second)

	path := filepath.Join(t.TempDir(), "textfile", "scanfill.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `scanfill_files_total{status="failed"} 1`)
	assert.Contains(t, string(data), "scanfill_file_duration_seconds_bucket")

	assert.NoError(t, r.WriteTextfile(""))
}
