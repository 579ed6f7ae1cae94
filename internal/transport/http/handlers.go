package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizmaster/internal/api"
	"quizmaster/internal/app"
	"quizmaster/internal/domain"
	"quizmaster/internal/notify"
)

// sampleNotice is shown whenever a read was answered from sample data.
const sampleNotice = "Using sample data. Could not connect to the server."

type readResponse[T any] struct {
	Data            T      `json:"data"`
	UsingSampleData bool   `json:"usingSampleData"`
	Notice          string `json:"notice,omitempty"`
}

func writeFetched[T any](w http.ResponseWriter, res api.Fetched[T]) {
	out := readResponse[T]{Data: res.Value, UsingSampleData: res.UsingSample}
	if res.UsingSample {
		out.Notice = sampleNotice
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listStudents(w http.ResponseWriter, r *http.Request) {
	writeFetched(w, s.backend.GetStudents(r.Context()))
}

func (s *Server) listStudentsWithClassrooms(w http.ResponseWriter, r *http.Request) {
	writeFetched(w, s.backend.GetStudentsWithClassrooms(r.Context()))
}

func (s *Server) listClassrooms(w http.ResponseWriter, r *http.Request) {
	writeFetched(w, s.backend.GetClassrooms(r.Context()))
}

func (s *Server) listClassroomStudents(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.GetClassroomStudents(r.Context(), chi.URLParam(r, "classroomID"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeFetched(w, res)
}

func (s *Server) listQuizzes(w http.ResponseWriter, r *http.Request) {
	writeFetched(w, s.backend.GetQuizzes(r.Context()))
}

func (s *Server) listQuestions(w http.ResponseWriter, r *http.Request) {
	writeFetched(w, s.backend.GetQuizQuestions(r.Context(), chi.URLParam(r, "quizID")))
}

func (s *Server) listResults(w http.ResponseWriter, r *http.Request) {
	writeFetched(w, s.backend.GetQuizResults(r.Context(), chi.URLParam(r, "quizID")))
}

func (s *Server) quizStats(w http.ResponseWriter, r *http.Request) {
	writeFetched(w, s.backend.GetQuizStats(r.Context(), chi.URLParam(r, "quizID")))
}

func (s *Server) createQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.NewQuiz
	if err := decodeBody(r, &quiz); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	created, err := s.backend.CreateQuiz(r.Context(), quiz)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) createClassroom(w http.ResponseWriter, r *http.Request) {
	var classroom domain.NewClassroom
	if err := decodeBody(r, &classroom); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	created, err := s.backend.CreateClassroom(r.Context(), classroom)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) enrollStudent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StudentID string `json:"studentId"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if body.StudentID == "" {
		s.writeError(w, r, &domain.ValidationError{Field: "studentId", Message: "Please select a student."}, nil)
		return
	}
	if err := s.backend.EnrollStudent(r.Context(), chi.URLParam(r, "classroomID"), body.StudentID); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Student enrolled successfully"})
}

func (s *Server) createStudent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	student, err := s.backend.CreateStudent(r.Context(), body.Name)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

func (s *Server) bulkCreateStudents(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Names []string `json:"names"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	created, err := s.backend.BulkCreateStudents(r.Context(), body.Names)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"created": created})
}

func (s *Server) deleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteStudent(r.Context(), chi.URLParam(r, "studentID")); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getContext(w http.ResponseWriter, r *http.Request) {
	sc, err := s.quizzes.Context(r.Context(), chi.URLParam(r, "visitorID"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) putContext(w http.ResponseWriter, r *http.Request) {
	var patch app.SessionContext
	if err := decodeBody(r, &patch); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	sc, err := s.quizzes.UpdateContext(r.Context(), chi.URLParam(r, "visitorID"), patch)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

type feedSnapshot struct {
	Connected bool                  `json:"connected"`
	Error     string                `json:"error,omitempty"`
	Events    []notify.Notification `json:"events"`
}

func (s *Server) snapshot() feedSnapshot {
	return feedSnapshot{
		Connected: s.feed.Connected(),
		Error:     s.feed.Err(),
		Events:    s.feed.Events(),
	}
}

func (s *Server) getFeed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}
