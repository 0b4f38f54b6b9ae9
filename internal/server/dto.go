package server

import (
	"github.com/go-playground/validator/v10"

	"github.com/mwiater/docqa/internal/qa"
)

var validate = validator.New()

type errorResponse struct {
	Error string `json:"error"`
}

type askRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

type askResponse struct {
	Answer       string           `json:"answer"`
	Context      qa.Context       `json:"context"`
	Evaluation   *qa.Evaluation   `json:"evaluation"`
	Localization *qa.Localization `json:"localization"`
	Error        string           `json:"error,omitempty"`
}

type uploadResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
	Pages      int    `json:"pages"`
	Chunks     int    `json:"chunks"`
}

func newAskResponse(state qa.State) askResponse {
	ctx := state.Context
	if ctx == nil {
		ctx = qa.Context{}
	}
	return askResponse{
		Answer:       state.Answer,
		Context:      ctx,
		Evaluation:   state.Evaluation,
		Localization: state.Localization,
	}
}

// degraded is the shape returned when a question could not be answered.
func degraded(err error) askResponse {
	return askResponse{
		Answer:  "Error: " + err.Error(),
		Context: qa.Context{},
		Error:   err.Error(),
	}
}
