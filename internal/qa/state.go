package qa

import "github.com/mwiater/docqa/internal/providers"

// State is the record threaded through one pipeline run. Each stage reads the whole
// state and returns an Update with the fields it produces.
type State struct {
	Question     string
	Context      Context
	Answer       string
	Evaluation   *Evaluation
	Localization *Localization
	// Transcript is the prompt/response exchange sent to the model during this run.
	Transcript []providers.ChatMessage
}

// Update carries the fields a stage adds or overwrites. Nil fields are left alone.
type Update struct {
	Context      Context
	Answer       *string
	Evaluation   *Evaluation
	Localization *Localization
	Transcript   []providers.ChatMessage
}

// apply merges u into s, last writer wins per field.
func (s *State) apply(u Update) {
	if u.Context != nil {
		s.Context = u.Context
	}
	if u.Answer != nil {
		s.Answer = *u.Answer
	}
	if u.Evaluation != nil {
		s.Evaluation = u.Evaluation
	}
	if u.Localization != nil {
		s.Localization = u.Localization
	}
	if u.Transcript != nil {
		s.Transcript = u.Transcript
	}
}

// withTurn returns a copy of transcript extended with a user prompt and the
// assistant's reply. The input slice is never modified.
func withTurn(transcript []providers.ChatMessage, prompt, response string) []providers.ChatMessage {
	out := make([]providers.ChatMessage, 0, len(transcript)+2)
	out = append(out, transcript...)
	return append(out,
		providers.ChatMessage{Role: "user", Content: prompt},
		providers.ChatMessage{Role: "assistant", Content: response},
	)
}
