package handlers

import "net/http"

// HealthHandler serves the liveness/readiness report.
type HealthHandler struct {
	service ChatService
}

func NewHealthHandler(service ChatService) *HealthHandler {
	return &HealthHandler{service: service}
}

// Health handles GET /health. Always 200: load balancers read the status
// field, not the code, so a degraded gateway keeps answering.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Health(r.Context()))
}
