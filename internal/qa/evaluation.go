package qa

import (
	"encoding/json"
	"strings"
)

// Verdict is the outcome of the evaluation stage. The orchestrator routes on it.
type Verdict int

const (
	// VerdictIncorrect means the model did not confirm its answer.
	VerdictIncorrect Verdict = iota
	// VerdictCorrect means the model confirmed its answer against the context.
	VerdictCorrect
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictCorrect:
		return "correct"
	default:
		return "incorrect"
	}
}

// Evaluation is the model's judgement of its own answer.
type Evaluation struct {
	Verdict   Verdict
	Rationale string
}

// IsCorrect reports whether the verdict is VerdictCorrect.
func (e Evaluation) IsCorrect() bool {
	return e.Verdict == VerdictCorrect
}

// MarshalJSON renders the evaluation in the API shape {"is_correct","evaluation"}.
func (e Evaluation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		IsCorrect  bool   `json:"is_correct"`
		Evaluation string `json:"evaluation"`
	}{e.IsCorrect(), e.Rationale})
}

// ParseEvaluation classifies a free-text model response. A response is correct only
// when, after trimming, it starts with "yes" in any letter case. Anything else,
// including empty or non-English output, is incorrect. The raw response is kept as
// the rationale.
//
// This single-token heuristic is the only contract with the model; a structured
// output format would be stricter.
func ParseEvaluation(response string) Evaluation {
	verdict := VerdictIncorrect
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(response)), "yes") {
		verdict = VerdictCorrect
	}
	return Evaluation{Verdict: verdict, Rationale: response}
}
