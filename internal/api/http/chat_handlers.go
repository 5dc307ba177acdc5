package http

import (
	"errors"
	"net/http"

	authmw "github.com/studydeck/studydeck/internal/auth/middleware"
	"github.com/studydeck/studydeck/internal/quiz"
)

// TurnResponse is the wire shape of one study exchange.
type TurnResponse struct {
	Response          string   `json:"response"`
	SessionComplete   bool     `json:"session_complete"`
	Score             *float64 `json:"score"`
	TotalQuestions    int      `json:"total_questions"`
	QuestionsAnswered int      `json:"questions_answered"`
}

// StudyTurnHandler runs one quiz turn for the authenticated learner.
// POST /chat/study  { "message": "..." }
func StudyTurnHandler(orc *quiz.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message string `json:"message"`
		}
		// An empty body is the same as an empty message: greet.
		_ = decodeValid(r, &req)

		res, err := orc.HandleTurn(r.Context(), authmw.LearnerKeyFromContext(r.Context()), req.Message)
		if err != nil {
			writeTurnError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTurnResponse(res))
	}
}

// ResetSessionHandler discards the learner's session. The next study
// turn behaves like a first-ever one.
// POST /chat/reset
func ResetSessionHandler(orc *quiz.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := orc.Reset(r.Context(), authmw.LearnerKeyFromContext(r.Context())); err != nil {
			writeTurnError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func toTurnResponse(res quiz.TurnResult) TurnResponse {
	return TurnResponse{
		Response:          res.Reply,
		SessionComplete:   res.SessionComplete,
		Score:             res.Score,
		TotalQuestions:    res.TotalQuestions,
		QuestionsAnswered: res.QuestionsAnswered,
	}
}

func writeTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrMissingLearner):
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
	case errors.Is(err, quiz.ErrOracleUnavailable):
		http.Error(w, "grading unavailable, retry shortly", http.StatusServiceUnavailable)
	case errors.Is(err, quiz.ErrConflict):
		http.Error(w, "session busy, retry", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
