package api

import (
	"errors"
	"net/http"

	"github.com/conveyor-ci/conveyor/internal/rollout"
)

// GetDeployment возвращает текущее состояние deployment'а:
// последнюю применённую ссылку и историю rollout'ов.
// GET /api/v1/deployments/{name}
func (h *Handler) GetDeployment(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		BadRequest(w, "deployment name is required")
		return
	}

	history, err := h.rolloutRepo.History(r.Context(), name, 20)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	if len(history) == 0 {
		NotFound(w, "deployment has no rollout history")
		return
	}

	resp := DeploymentResponse{Name: name}

	current := RolloutEntryFromDomain(history[0])
	resp.Current = &current

	resp.History = make([]RolloutEntry, len(history))
	for i, rec := range history {
		resp.History[i] = RolloutEntryFromDomain(rec)
	}

	Success(w, resp)
}

// RollbackDeployment откатывает deployment к предыдущей записи истории.
//
// Откат выполняется тем же прогрессивным циклом, что и выкатка,
// и только по явной команде — автоматических откатов нет.
//
// POST /api/v1/deployments/{name}/rollback
func (h *Handler) RollbackDeployment(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		BadRequest(w, "deployment name is required")
		return
	}

	result, err := h.rollout.Rollback(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, rollout.ErrNoHistory):
			InvalidState(w, "no previous rollout to roll back to")
		case errors.Is(err, rollout.ErrRolloutStalled):
			state := ""
			if result != nil {
				state = string(result.State)
			}
			h.logger.Warn("rollback stalled",
				"deployment", name,
				"state", state,
			)
			InvalidState(w, "rollback stalled: "+err.Error())
		default:
			if HandleRepoError(w, h.logger, err, "deployment not found") {
				return
			}
		}
		return
	}

	h.logger.Info("deployment rolled back",
		"deployment", name,
		"ref", result.Ref,
	)

	Success(w, RollbackResponse{
		Deployment: result.Deployment,
		Ref:        result.Ref,
		State:      string(result.State),
		Replaced:   result.Replaced,
	})
}
