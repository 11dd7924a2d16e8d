package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Veraticus/scanfill/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressRenderer_Handle(t *testing.T) {
	var out bytes.Buffer
	p := NewProgressRenderer(&out)

	p.Handle(model.ProgressEvent{State: model.StateScanning})
	p.Handle(model.ProgressEvent{State: model.StateParsing, Message: "Processing 2 documents..."})
	p.Handle(model.ProgressEvent{State: model.StateParsing, File: "/x/a.pdf", Percentage: 50})
	p.Handle(model.ProgressEvent{State: model.StateParsing, File: "/x/b.pdf", Percentage: 100})
	p.Handle(model.ProgressEvent{State: model.StateReviewResults, Message: "All documents processed"})
	p.Handle(model.ProgressEvent{State: model.StateError, Err: errors.New("sheet locked")})
	p.Close()

	s := out.String()
	assert.Contains(t, s, "Scanning folders")
	assert.Contains(t, s, "Processing 2 documents")
	assert.Contains(t, s, "b.pdf")
	assert.Contains(t, s, "All documents processed")
	assert.Contains(t, s, "sheet locked")
	assert.Equal(t, 1, strings.Count(s, "Scanning folders"))
}

func TestRenderSummary(t *testing.T) {
	summary := model.NewRunSummary("run", "proj")
	summary.EnsureCategory("january", 0, "01 - Janvier", "Transport")
	summary.Add("january", "Transport", 10.5)
	summary.EnsureCategory("february", 1, "Fevrier", "Repas")
	summary.Stats = model.RunStats{Total: 3, Done: 2, Failed: 1}
	summary.Conflicts = []model.Conflict{{ID: 1}}

	var out bytes.Buffer
	require.NoError(t, RenderSummary(&out, summary))

	s := out.String()
	assert.Less(t, strings.Index(s, "01 - Janvier"), strings.Index(s, "Fevrier"))
	assert.Contains(t, s, "10.50")
	assert.Contains(t, s, "0.00")
	assert.Contains(t, s, "Files: 3")
	assert.Contains(t, s, "1 conflict(s) left unresolved")
}
