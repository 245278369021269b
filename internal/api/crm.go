package api

import (
	"net/http"

	"github.com/sells-group/suplook/internal/crm"
	"github.com/sells-group/suplook/internal/model"
)

type pushRequest struct {
	IDs []string `json:"ids"`
}

type pushResponse struct {
	Success bool `json:"success"`
	*crm.PushResult
}

func (s *Server) salesforceQueue(w http.ResponseWriter, r *http.Request) {
	queue := []model.Lead{}
	if s.deps.Pusher != nil {
		q, err := s.deps.Pusher.Queue(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if q != nil {
			queue = q
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled": s.deps.Pusher.Enabled(),
		"count":   len(queue),
		"leads":   queue,
	})
}

func (s *Server) salesforcePush(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := s.decode(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	if !s.deps.Pusher.Enabled() {
		writeError(w, r, crm.ErrDisabled)
		return
	}
	res, err := s.deps.Pusher.Push(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pushResponse{Success: true, PushResult: res})
}
