package qa

import "strings"

// Prompts holds the three templates used by the pipeline. Templates reference state
// with {name} placeholders: {context_string}, {context}, {question}, {answer} and
// {evaluation}. Unknown placeholders are left as written.
type Prompts struct {
	Generation string
	Evaluation string
	Location   string
}

// FormatPrompt fills the placeholders of template from the given state.
func FormatPrompt(template string, s State) string {
	evidence := s.Context.String()
	evaluation := ""
	if s.Evaluation != nil {
		evaluation = s.Evaluation.Rationale
	}
	r := strings.NewReplacer(
		"{context_string}", evidence,
		"{context}", evidence,
		"{question}", s.Question,
		"{answer}", s.Answer,
		"{evaluation}", evaluation,
	)
	return r.Replace(template)
}
