package classification

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/Veraticus/scanfill/internal/model"
)

// fallbackCandidates is how many trailing numbers are offered when no keyword matched.
const fallbackCandidates = 5

// TieBreak holds the numeric thresholds used when several candidates survive.
type TieBreak struct {
	// RatioMin and RatioMax bound how much larger the bigger of two candidates
	// must be to win outright.
	RatioMin float64 `mapstructure:"ratio_min"`
	RatioMax float64 `mapstructure:"ratio_max"`
	// SumTolerance is the slack allowed when checking largest == second + third.
	SumTolerance float64 `mapstructure:"sum_tolerance"`
	// Values under SmallValue are dropped when the largest exceeds LargeValue.
	SmallValue float64 `mapstructure:"small_value"`
	LargeValue float64 `mapstructure:"large_value"`
}

// DefaultTieBreak returns the empirically tuned thresholds.
func DefaultTieBreak() TieBreak {
	return TieBreak{
		RatioMin:     1.5,
		RatioMax:     10,
		SumTolerance: 0.05,
		SmallValue:   5,
		LargeValue:   10,
	}
}

// Classifier extracts a single total from invoice text.
type Classifier struct {
	logger   *slog.Logger
	tables   compiledTables
	tieBreak TieBreak
	mu       sync.RWMutex
}

// NewClassifier creates a classifier over the given keyword tables.
func NewClassifier(tables Tables, tieBreak TieBreak, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		tables:   compileTables(tables),
		tieBreak: tieBreak,
		logger:   logger,
	}
}

// UpdateTables swaps the keyword tables.
func (c *Classifier) UpdateTables(tables Tables) {
	compiled := compileTables(tables)
	c.mu.Lock()
	c.tables = compiled
	c.mu.Unlock()
}

// FindAmount classifies text and returns the extraction outcome.
// It is a pure function of text, customPattern and the configured tables.
func (c *Classifier) FindAmount(text, customPattern string) model.ExtractionResult {
	c.mu.RLock()
	tables := c.tables
	c.mu.RUnlock()

	if customPattern != "" {
		if result, ok := c.matchCustom(text, customPattern); ok {
			return result
		}
	}

	candidates := keywordCandidates(&tables, text)
	if len(candidates) == 0 {
		all := extractNumbers(&tables, text)
		if len(all) == 0 {
			return model.FailedResult("no amount candidates found")
		}
		if len(all) > fallbackCandidates {
			all = all[len(all)-fallbackCandidates:]
		}
		for i := range all {
			all[i].Tier = TierNone
			all[i].Priority = 1
		}
		return model.AmbiguousResult(all)
	}

	unique := dedupe(topTier(candidates))
	if len(unique) == 1 {
		return model.SuccessResult(unique[0].Amount, unique)
	}
	return c.breakTie(unique)
}

func (c *Classifier) matchCustom(text, pattern string) (model.ExtractionResult, bool) {
	re, err := common.CompileInsensitive(pattern)
	if err != nil {
		c.logger.Warn("Ignoring custom pattern", "pattern", pattern, "error", err)
		return model.ExtractionResult{}, false
	}
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil || len(loc) < 4 || loc[2] < 0 || loc[2] == loc[3] {
		return model.ExtractionResult{}, false
	}
	amount, ok := parseLeadingFloat(strings.Replace(text[loc[2]:loc[3]], ",", ".", 1))
	if !ok {
		return model.ExtractionResult{}, false
	}
	candidate := model.Candidate{
		Amount:  amount,
		Context: text[loc[0]:loc[1]],
		Span:    &model.TextSpan{Source: text, Offset: loc[2], Length: loc[3] - loc[2]},
	}
	return model.SuccessResult(amount, []model.Candidate{candidate}), true
}

// lookahead is how many following lines a keyword line may take its number from.
func lookahead(tier int) int {
	switch tier {
	case TierSupreme:
		return 20
	case TierStrong:
		return 5
	default:
		return 1
	}
}

func keywordCandidates(tables *compiledTables, text string) []model.Candidate {
	lines := strings.Split(text, "\n")
	var out []model.Candidate

	for i, line := range lines {
		tier := tables.lineTier(line)
		if tier == TierNone || tables.ignored(line) {
			continue
		}

		last := min(len(lines)-1, i+lookahead(tier))
		for j := i; j <= last; j++ {
			if j > i && tables.ignored(lines[j]) {
				continue
			}
			for _, cand := range extractNumbers(tables, lines[j]) {
				cand.Tier = tier
				cand.Currency = containsAny(strings.ToLower(cand.Context), tables.currency)
				cand.Priority = 1
				if cand.Currency {
					cand.Priority = 2
				}
				if j == i {
					cand.Priority += 2
				}
				out = append(out, cand)
			}
		}
	}
	return out
}

func topTier(candidates []model.Candidate) []model.Candidate {
	maxTier := TierNone
	for _, c := range candidates {
		maxTier = max(maxTier, c.Tier)
	}
	return filter(candidates, func(c model.Candidate) bool { return c.Tier == maxTier })
}

// dedupe keeps one candidate per amount, the one with the highest priority,
// in order of first appearance.
func dedupe(candidates []model.Candidate) []model.Candidate {
	index := make(map[float64]int, len(candidates))
	out := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if i, ok := index[c.Amount]; ok {
			if c.Priority > out[i].Priority {
				out[i] = c
			}
			continue
		}
		index[c.Amount] = len(out)
		out = append(out, c)
	}
	return out
}

func filter(candidates []model.Candidate, keep func(model.Candidate) bool) []model.Candidate {
	out := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (c *Classifier) breakTie(unique []model.Candidate) model.ExtractionResult {
	tb := c.tieBreak

	pool := unique
	if boosted := filter(unique, func(c model.Candidate) bool { return c.Currency }); len(boosted) > 0 {
		pool = boosted
	}
	if len(pool) == 1 {
		return model.SuccessResult(pool[0].Amount, pool)
	}

	maxPriority := 0
	for _, cand := range pool {
		maxPriority = max(maxPriority, cand.Priority)
	}
	best := filter(pool, func(c model.Candidate) bool { return c.Priority == maxPriority })
	if len(best) == 1 {
		return model.SuccessResult(best[0].Amount, best)
	}

	sorted := append([]model.Candidate(nil), best...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Amount > sorted[j].Amount })

	// Subtotal plus tax equals total.
	if len(sorted) >= 3 && math.Abs(sorted[0].Amount-(sorted[1].Amount+sorted[2].Amount)) < tb.SumTolerance {
		return model.SuccessResult(sorted[0].Amount, sorted[:1])
	}

	if sorted[0].Amount > tb.LargeValue && sorted[len(sorted)-1].Amount < tb.SmallValue {
		significant := filter(best, func(c model.Candidate) bool { return c.Amount >= tb.SmallValue })
		if len(significant) == 1 {
			return model.SuccessResult(significant[0].Amount, significant)
		}
	}

	if len(best) == 2 &&
		sorted[0].Amount > sorted[1].Amount*tb.RatioMin &&
		sorted[0].Amount < sorted[1].Amount*tb.RatioMax {
		return model.SuccessResult(sorted[0].Amount, sorted)
	}

	return model.AmbiguousResult(unique)
}
