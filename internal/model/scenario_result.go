package model

// DeltaMismatch records one tracked balance that moved differently than predicted.
type DeltaMismatch struct {
	Balance  string `json:"balance"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// ScenarioResult is the stored outcome of one harness scenario.
type ScenarioResult struct {
	RunID        string          `json:"run_id"`
	Scenario     string          `json:"scenario"`
	Action       string          `json:"action"`
	Trader       string          `json:"trader,omitempty"`
	TokenID      uint64          `json:"token_id,omitempty"`
	Passed       bool            `json:"passed"`
	Kind         string          `json:"kind,omitempty"`
	Step         string          `json:"step,omitempty"`
	Error        string          `json:"error,omitempty"`
	FormulaPrice string          `json:"formula_price,omitempty"`
	LivePrice    string          `json:"live_price,omitempty"`
	Mismatches   []DeltaMismatch `json:"mismatches,omitempty"`
	TxHash       string          `json:"tx_hash,omitempty"`
	Fee          string          `json:"fee,omitempty"`
	StartedAt    string          `json:"started_at"`
	DurationMs   int64           `json:"duration_ms"`
}
