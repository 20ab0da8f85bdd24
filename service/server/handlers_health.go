package server

import (
	"net/http"
	"time"

	"herald/service/util"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": util.FormatUptime(time.Since(s.startTime)),
	})
}
