package handlers

import (
	"net/http"

	"github.com/alphamind/gateway/internal/infra/llm"
)

// ModelCatalog is the registry capability the handler needs.
type ModelCatalog interface {
	List() []llm.ModelDescriptor
}

// ModelsHandler serves the aggregated model catalog.
type ModelsHandler struct {
	catalog ModelCatalog
}

func NewModelsHandler(catalog ModelCatalog) *ModelsHandler {
	return &ModelsHandler{catalog: catalog}
}

// ListModels handles GET /models: a bare JSON array of descriptors.
// An empty catalog is a valid response, not an error — adapters may all
// be degraded.
func (h *ModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	models := h.catalog.List()
	if models == nil {
		models = []llm.ModelDescriptor{}
	}
	writeJSON(w, http.StatusOK, models)
}
