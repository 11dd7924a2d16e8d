package model

// Conflict is a document whose extraction needs an operator decision.
type Conflict struct {
	Suggested      *float64
	ResolvedAmount *float64
	Month          string
	Category       string
	FilePath       string
	FileName       string
	Status         ExtractionStatus
	Message        string
	Candidates     []Candidate
	ID             int
	Manual         bool
	// Applied is set once ResolvedAmount has been added to the totals.
	Applied bool
}

// Resolved reports whether the operator has supplied an amount.
func (c *Conflict) Resolved() bool {
	return c.ResolvedAmount != nil
}

// Resolution is the operator's answer to one conflict.
type Resolution struct {
	Amount  float64
	Manual  bool
	Skipped bool
}
