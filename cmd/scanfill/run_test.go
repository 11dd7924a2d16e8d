package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/scanfill/internal/cli"
	"github.com/Veraticus/scanfill/internal/contenthash"
	"github.com/Veraticus/scanfill/internal/engine"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/Veraticus/scanfill/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedResolver struct {
	answers []model.Resolution
	err     error
	seen    []string
}

func (s *scriptedResolver) Resolve(_ context.Context, c model.Conflict, position, total int) (model.Resolution, error) {
	s.seen = append(s.seen, c.FileName)
	if len(s.answers) == 0 {
		return model.Resolution{}, s.err
	}
	next := s.answers[0]
	s.answers = s.answers[1:]
	return next, nil
}

func runFixture(t *testing.T) (*engine.Engine, *model.RunSummary, *engine.MockStore) {
	t.Helper()
	root := t.TempDir()
	for _, p := range []string{"Janvier/Transport/a.pdf", "Janvier/Transport/b.pdf", "Mars/Repas/c.pdf"} {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte(p), 0o600))
	}

	store := engine.NewMockStore()
	eng := engine.New(engine.DefaultConfig(), engine.Dependencies{
		Scanner: scanner.New(nil),
		Extractor: engine.NewMockExtractor(map[string]model.ExtractionResult{
			"a.pdf": model.AmbiguousResult([]model.Candidate{{Amount: 20}, {Amount: 30}}),
			"b.pdf": model.SuccessResult(5, nil),
		}),
		Hasher: contenthash.New(time.Minute),
		Store:  store,
	})

	summary, err := eng.Run(context.Background(), &model.Project{ID: "p", RootPath: root}, nil)
	require.NoError(t, err)
	require.Len(t, summary.Conflicts, 2)
	return eng, summary, store
}

func TestResolveConflicts(t *testing.T) {
	eng, summary, store := runFixture(t)
	resolver := &scriptedResolver{answers: []model.Resolution{
		{Amount: 30},
		{Amount: 12.5, Manual: true},
	}}

	require.NoError(t, resolveConflicts(context.Background(), eng, resolver, summary))

	assert.Equal(t, []string{"a.pdf", "c.pdf"}, resolver.seen)
	assert.Equal(t, 0, summary.UnresolvedCount())
	assert.Equal(t, 1, store.ManualEntryCount())
}

func TestResolveConflicts_SkipAndAbort(t *testing.T) {
	eng, summary, _ := runFixture(t)
	resolver := &scriptedResolver{
		answers: []model.Resolution{{Skipped: true}},
		err:     cli.ErrResolutionAborted,
	}

	require.NoError(t, resolveConflicts(context.Background(), eng, resolver, summary))
	assert.Equal(t, 2, summary.UnresolvedCount())
	assert.Len(t, resolver.seen, 2)
}

func TestResolveConflicts_OnlyUnresolved(t *testing.T) {
	eng, summary, _ := runFixture(t)
	require.NoError(t, eng.Resolve(context.Background(), summary, summary.Conflicts[0].ID, 20, false))

	resolver := &scriptedResolver{answers: []model.Resolution{{Amount: 1}}}
	require.NoError(t, resolveConflicts(context.Background(), eng, resolver, summary))
	assert.Equal(t, []string{"c.pdf"}, resolver.seen)
}
