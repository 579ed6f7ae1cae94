package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizmaster/internal/app"
)

type startRequest struct {
	VisitorID string `json:"visitorId"`
	PublicID  string `json:"publicId"`
}

type answerRequest struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer string `json:"selectedAnswer"`
}

type cursorRequest struct {
	Delta int `json:"delta"`
}

type jumpRequest struct {
	Index int `json:"index"`
}

// writeSession writes the view, or the error together with the view when
// the session exists.
func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, view app.SessionView, err error) {
	if err != nil {
		var session any
		if view.ID != "" {
			session = view
		}
		s.writeError(w, r, err, session)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	view, err := s.quizzes.Start(r.Context(), req.VisitorID, req.PublicID)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.quizzes.View(r.Context(), chi.URLParam(r, "sessionID"))
	s.writeSession(w, r, view, err)
}

// getSessionSummary also answers for sessions held by another instance.
func (s *Server) getSessionSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.quizzes.Summary(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	s.quizzes.Close(r.Context(), chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) selectAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	view, err := s.quizzes.SelectAnswer(r.Context(), chi.URLParam(r, "sessionID"), req.QuestionID, req.SelectedAnswer)
	s.writeSession(w, r, view, err)
}

func (s *Server) moveCursor(w http.ResponseWriter, r *http.Request) {
	var req cursorRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	view, err := s.quizzes.MoveCursor(r.Context(), chi.URLParam(r, "sessionID"), req.Delta)
	s.writeSession(w, r, view, err)
}

func (s *Server) jump(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	view, err := s.quizzes.JumpTo(r.Context(), chi.URLParam(r, "sessionID"), req.Index)
	s.writeSession(w, r, view, err)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	view, err := s.quizzes.Submit(r.Context(), chi.URLParam(r, "sessionID"))
	s.writeSession(w, r, view, err)
}
