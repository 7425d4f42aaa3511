package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"evdealer/backend/internal/authz"
	"evdealer/backend/internal/domain"
)

func (a *API) handleListTasks(w http.ResponseWriter, r *http.Request) {
	status := domain.TaskStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	tasks, err := a.tasks.ListByStatus(r.Context(), status)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (a *API) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleTaskByDeposit(w http.ResponseWriter, r *http.Request) {
	task, err := a.tasks.GetByDepositID(r.Context(), chi.URLParam(r, "depositID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleAdvanceTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.TaskStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	actor, err := authz.Require(r.Context(), authz.OpRead)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	task, err := a.tasks.Advance(r.Context(), chi.URLParam(r, "id"), req.Status, actor)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
