package server

import (
	"net/http"

	"herald/service/util"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCurriculum(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusOK, s.curriculum)
}

func (s *Server) handleCurriculumProgram(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "program")

	program := s.curriculum.Program(name)
	if program == nil {
		util.WriteJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "unknown program"})
		return
	}

	util.WriteJSON(w, http.StatusOK, program)
}
