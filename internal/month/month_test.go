package month

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentify(t *testing.T) {
	tests := []struct {
		input     string
		wantName  string
		wantIndex int
		wantOK    bool
	}{
		{input: "Janvier 2026", wantName: "january", wantIndex: 0, wantOK: true},
		{input: "01-Jan", wantName: "january", wantIndex: 0, wantOK: true},
		{input: "jan_2026", wantName: "january", wantIndex: 0, wantOK: true},
		{input: "enero", wantName: "january", wantIndex: 0, wantOK: true},
		{input: "02 - Février", wantName: "february", wantIndex: 1, wantOK: true},
		{input: "FEVR.", wantName: "february", wantIndex: 1, wantOK: true},
		{input: "03 Mars", wantName: "march", wantIndex: 2, wantOK: true},
		{input: "Mayo 2025", wantName: "may", wantIndex: 4, wantOK: true},
		{input: "mai", wantName: "may", wantIndex: 4, wantOK: true},
		{input: "Juillet", wantName: "july", wantIndex: 6, wantOK: true},
		{input: "Août", wantName: "august", wantIndex: 7, wantOK: true},
		{input: "sept-2025", wantName: "september", wantIndex: 8, wantOK: true},
		{input: "Décembre", wantName: "december", wantIndex: 11, wantOK: true},
		{input: "12 Déc", wantName: "december", wantIndex: 11, wantOK: true},
		{input: "diciembre", wantName: "december", wantIndex: 11, wantOK: true},
		{input: "Invoices", wantOK: false},
		{input: "janitor", wantOK: false},
		{input: "marketing", wantOK: false},
		{input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, ok := Identify(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantName, m.Name)
				assert.Equal(t, tt.wantIndex, m.Index)
			}
		})
	}
}

func TestIdentify_MarsIsNotMay(t *testing.T) {
	m, ok := Identify("Mars")
	assert.True(t, ok)
	assert.Equal(t, "march", m.Name)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "fevrier", Normalize("Février"))
	assert.Equal(t, "aout", Normalize("AOÛT"))
	assert.Equal(t, "net a regler", Normalize("Net à Régler"))
}

func TestByIndexAndAll(t *testing.T) {
	m, ok := ByIndex(5)
	assert.True(t, ok)
	assert.Equal(t, "june", m.Name)

	_, ok = ByIndex(12)
	assert.False(t, ok)

	all := All()
	assert.Len(t, all, 12)
	assert.Equal(t, "january", all[0].Name)
	assert.Equal(t, "december", all[11].Name)
}
