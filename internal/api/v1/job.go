package v1

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/techmengg/wnreader/internal/http/request"
	"github.com/techmengg/wnreader/internal/http/response"
	"github.com/techmengg/wnreader/internal/log"
	"github.com/techmengg/wnreader/internal/model"
)

// listJobs reports import progress, optionally filtered by status.
func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	find := &model.FindImportJob{}
	if status := request.QueryStringParam(r, "status", ""); status != "" {
		find.Status = &status
	}

	jobs, err := h.store.ListJobs(find)
	if err != nil {
		log.Error("Error listing jobs", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}
	response.OK(w, r, jobs)
}
