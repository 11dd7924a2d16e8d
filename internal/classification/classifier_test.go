package classification

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/scanfill/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassifier() *Classifier {
	return NewClassifier(DefaultTables(), DefaultTieBreak(), nil)
}

func amounts(candidates []model.Candidate) []float64 {
	out := make([]float64, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Amount)
	}
	return out
}

func TestClassifier_FindAmount(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		wantStatus     model.ExtractionStatus
		wantAmount     float64
		wantCandidates []float64
	}{
		{
			name:       "taxes included total beats tax excluded subtotal",
			text:       "FACTURE N 2026-001\nTotal HT: 100.00\nTVA 20%: 20.00\nTotal TTC: 120.00\n",
			wantStatus: model.StatusSuccess,
			wantAmount: 120,
		},
		{
			name:       "subtotal after the total stays out of the way",
			text:       "Total TTC: 120.00\nTotal HT: 100.00",
			wantStatus: model.StatusSuccess,
			wantAmount: 120,
		},
		{
			name:       "same amount with and without currency",
			text:       "Total: 50\nTotal: 50 €",
			wantStatus: model.StatusSuccess,
			wantAmount: 50,
		},
		{
			name:       "no-break space thousands separator",
			text:       "Facture\nNet à payer : 1\u00a0234,56 €\n",
			wantStatus: model.StatusSuccess,
			wantAmount: 1234.56,
		},
		{
			name:       "narrow no-break space thousands separator",
			text:       "Facture\nNet à payer : 1\u202f234,56 €\n",
			wantStatus: model.StatusSuccess,
			wantAmount: 1234.56,
		},
		{
			name:       "currency flagged amount wins",
			text:       "Amount due\n40.00\n55.00 €",
			wantStatus: model.StatusSuccess,
			wantAmount: 55,
		},
		{
			name:           "subtotal plus tax equals total",
			text:           "Montant TTC\n100.00\n20.00\n120.00",
			wantStatus:     model.StatusSuccess,
			wantAmount:     120,
			wantCandidates: []float64{120},
		},
		{
			name:       "small values dropped next to a large one",
			text:       "Montant TTC\n50,00\n3,00\n2,00",
			wantStatus: model.StatusSuccess,
			wantAmount: 50,
		},
		{
			name:           "markedly larger of two wins",
			text:           "Montant TTC\n100,00\n20,00",
			wantStatus:     model.StatusSuccess,
			wantAmount:     100,
			wantCandidates: []float64{100, 20},
		},
		{
			name:           "two close values stay ambiguous",
			text:           "Montant TTC\n100,00\n90,00",
			wantStatus:     model.StatusAmbiguous,
			wantCandidates: []float64{100, 90},
		},
		{
			name:           "no keyword falls back to the last five numbers",
			text:           "Merci pour votre visite\nA: 11,50\nB: 12,50\nC: 13,50\nD: 14,50\nE: 15,50\nF: 16,50",
			wantStatus:     model.StatusAmbiguous,
			wantCandidates: []float64{12.5, 13.5, 14.5, 15.5, 16.5},
		},
		{
			name:       "no numbers at all",
			text:       "Nothing to see here",
			wantStatus: model.StatusFailed,
		},
		{
			name:       "supreme keyword looks far ahead",
			text:       "Net à payer\n\n\n\n\n\n99,00",
			wantStatus: model.StatusSuccess,
			wantAmount: 99,
		},
		{
			name:           "strong keyword only looks five lines ahead",
			text:           "Amount due\n\n\n\n\n\n99,00",
			wantStatus:     model.StatusAmbiguous,
			wantCandidates: []float64{99},
		},
		{
			name:       "european thousands separators",
			text:       "Net à payer : 1.234,56 €",
			wantStatus: model.StatusSuccess,
			wantAmount: 1234.56,
		},
		{
			name:       "bank details below the total are skipped",
			text:       "Total TTC: 120,00\nIBAN FR76 3000 6000 0112 3456 7890 189",
			wantStatus: model.StatusSuccess,
			wantAmount: 120,
		},
	}

	c := newTestClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.FindAmount(tt.text, "")

			assert.Equal(t, tt.wantStatus, result.Status)
			if tt.wantStatus == model.StatusSuccess {
				assert.InDelta(t, tt.wantAmount, result.Amount, 0.0001)
			} else {
				assert.Zero(t, result.Amount)
			}
			if tt.wantCandidates != nil {
				assert.Equal(t, tt.wantCandidates, amounts(result.Candidates))
			}
			if tt.wantStatus == model.StatusFailed {
				assert.NotEmpty(t, result.Message)
				assert.Empty(t, result.Candidates)
			}
		})
	}
}

func TestClassifier_FallbackCandidatesAreUntiered(t *testing.T) {
	result := newTestClassifier().FindAmount("Reçu\nA: 11,50\nB: 12,50", "")

	require.Equal(t, model.StatusAmbiguous, result.Status)
	for _, c := range result.Candidates {
		assert.Equal(t, TierNone, c.Tier)
		assert.Equal(t, 1, c.Priority)
	}
}

func TestClassifier_Priority(t *testing.T) {
	result := newTestClassifier().FindAmount("Total TTC: 120,00 €", "")

	require.Equal(t, model.StatusSuccess, result.Status)
	require.Len(t, result.Candidates, 1)
	c := result.Candidates[0]
	assert.Equal(t, TierSupreme, c.Tier)
	assert.Equal(t, 4, c.Priority)
	assert.True(t, c.Currency)
	assert.Equal(t, "...Total TTC: 120,00 €...", c.Context)
	require.NotNil(t, c.Span)
	assert.Equal(t, "120,00", c.Span.Match())
}

func TestClassifier_SubtotalDemotion(t *testing.T) {
	tables := compileTables(DefaultTables())

	assert.Equal(t, TierSupreme, tables.lineTier("Total TTC"))
	assert.Equal(t, TierStrong, tables.lineTier("Amount due"))
	assert.Equal(t, TierLow, tables.lineTier("Total HT"))
	assert.Equal(t, TierLow, tables.lineTier("Montant HT"))
	assert.Equal(t, TierLow, tables.lineTier("Total"))
	assert.Equal(t, TierSupreme, tables.lineTier("NET À RÉGLER"))
	assert.Equal(t, TierNone, tables.lineTier("Bonjour"))
}

func TestClassifier_TieBreakIsConfigurable(t *testing.T) {
	tb := DefaultTieBreak()
	tb.RatioMin = 1.05
	c := NewClassifier(DefaultTables(), tb, nil)

	result := c.FindAmount("Montant TTC\n100,00\n90,00", "")
	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.InDelta(t, 100, result.Amount, 0.0001)
}

func TestClassifier_CustomPattern(t *testing.T) {
	c := newTestClassifier()

	result := c.FindAmount("Ligne 1\nGrand total: 88,40 EUR", `grand total:\s*([\d,]+)`)
	require.Equal(t, model.StatusSuccess, result.Status)
	assert.InDelta(t, 88.40, result.Amount, 0.0001)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "Grand total: 88,40", result.Candidates[0].Context)

	result = c.FindAmount("Montant TTC 42,00", "([")
	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.InDelta(t, 42, result.Amount, 0.0001)

	result = c.FindAmount("Montant TTC 42,00", `reference (\d+)`)
	assert.InDelta(t, 42, result.Amount, 0.0001)
}

func TestClassifier_Deterministic(t *testing.T) {
	c := newTestClassifier()
	text := "Total HT 80,00\nTotal TTC 96,00\nMontant 96,00\nPage 1 / 1"

	first := c.FindAmount(text, "")
	second := c.FindAmount(text, "")
	assert.Equal(t, first, second)
}

func TestExtractNumbers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []float64
	}{
		{name: "decimal comma", text: "Prix 236,50", want: []float64{236.5}},
		{name: "decimal dot", text: "Prix 1234.56", want: []float64{1234.56}},
		{name: "space thousands", text: "Solde 12 345,67", want: []float64{12345.67}},
		{name: "dot thousands", text: "Prix 1.234,56", want: []float64{1234.56}},
		{name: "no-break space thousands", text: "Prix 1\u00a0234,56", want: []float64{1234.56}},
		{name: "narrow no-break space thousands", text: "Solde 12\u202f345,67", want: []float64{12345.67}},
		{name: "upper bound excluded", text: "Prix 1 000 000,00", want: []float64{}},
		{name: "just under upper bound", text: "Prix 999 999,99", want: []float64{999999.99}},
		{name: "lower bound excluded", text: "Prix 0,01", want: []float64{}},
		{name: "just over lower bound", text: "Prix 0,02", want: []float64{0.02}},
		{name: "year", text: "Exercice 2024", want: []float64{}},
		{name: "postal code", text: "73340 Aillon", want: []float64{}},
		{name: "phone label", text: "Tel 04 79 12 34 56", want: []float64{}},
		{name: "phone shape", text: "Appelez 0479123456", want: []float64{}},
		{name: "percent", text: "Remise 10% appliquée", want: []float64{}},
		{name: "page counter", text: "Feuille 1 / 2", want: []float64{}},
		{name: "identifier glued to letters", text: "Code FR76", want: []float64{}},
		{name: "identifier vocabulary", text: "Commande 4521", want: []float64{}},
		{name: "barcode", text: "Code 1234567890123", want: []float64{}},
		{name: "date fragment", text: "Livré le 12/03", want: []float64{}},
	}

	c := newTestClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := amounts(c.ExtractNumbers(tt.text))
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 0.0001)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := map[string]float64{
		"236,50":   236.5,
		"1.234,56": 1234.56,
		"1 234,56": 1234.56,
		"1\u00a0234,56": 1234.56,
		"1\u202f234,56": 1234.56,
		"1234.56":  1234.56,
		"42":       42,
		"1.234":    1.234,
	}
	for raw, want := range tests {
		got, ok := parseAmount(raw)
		assert.True(t, ok, raw)
		assert.InDelta(t, want, got, 0.0001, raw)
	}
}

func TestLoadTables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tiers:
  - name: custom
    level: 3
    phrases: ["grand total"]
currency: ["eur"]
`), 0o600))

	tables, err := LoadTables(path)
	require.NoError(t, err)
	require.Len(t, tables.Tiers, 1)
	assert.Equal(t, DefaultTables().Ignore, tables.Ignore)
	assert.Equal(t, []string{"eur"}, tables.Currency)

	c := NewClassifier(tables, DefaultTieBreak(), nil)
	result := c.FindAmount("Grand Total\n75,00 EUR", "")
	require.Equal(t, model.StatusSuccess, result.Status)
	assert.InDelta(t, 75, result.Amount, 0.0001)
	assert.True(t, result.Candidates[0].Currency)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("tiers:\n  - name: x\n    level: 7\n    phrases: [a]\n"), 0o600))
	_, err = LoadTables(bad)
	assert.Error(t, err)

	_, err = LoadTables(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	defaults, err := LoadTables("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTables(), defaults)
}
