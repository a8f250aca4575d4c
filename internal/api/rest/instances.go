package rest

import (
	"net/http"
	"strconv"

	"github.com/slateci/slate-federation/internal/executor"
	"github.com/slateci/slate-federation/internal/models"
)

type instancePayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Application string `json:"application"`
	OwningGroup string `json:"owning_group"`
	Cluster     string `json:"cluster"`
}

func instanceMetadata(i models.ApplicationInstance) instancePayload {
	return instancePayload{ID: i.ID, Name: i.Name, Application: i.Application, OwningGroup: i.OwningGroup, Cluster: i.Cluster}
}

func (h *Handler) ListInstances(w http.ResponseWriter, r *http.Request) {
	env, err := h.Exec.ListInstances(r.Context(), r.URL.Query().Get("group"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) GetInstance(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	inst, err := h.Exec.GetInstance(r.Context(), user, pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeResource(w, http.StatusOK, "ApplicationInstance", instanceMetadata(inst))
}

func (h *Handler) DeleteInstance(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	if err := h.Exec.DeleteInstance(r.Context(), user, pathVar(r, "id"), false); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

// InstanceLogs implements GET /instances/{id}/logs?max_lines&container&previous.
func (h *Handler) InstanceLogs(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	q := r.URL.Query()

	req := executor.InstanceLogsRequest{Container: q.Get("container")}
	if v := q.Get("max_lines"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, badRequest("max_lines must be an integer"))
			return
		}
		req.MaxLines = n
	}
	if v := q.Get("previous"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, badRequest("previous must be a boolean"))
			return
		}
		req.Previous = b
	}

	logs, err := h.Exec.InstanceLogs(r.Context(), user, pathVar(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"logs": logs})
}

type scaleBody struct {
	Replicas   int    `json:"replicas"`
	Deployment string `json:"deployment"`
}

func (h *Handler) ScaleInstance(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	var body scaleBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, badRequest("invalid JSON in request body"))
		return
	}
	if err := h.Exec.ScaleInstance(r.Context(), user, pathVar(r, "id"), body.Replicas, body.Deployment); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

type restartBody struct {
	Deployment string `json:"deployment"`
}

func (h *Handler) RestartInstance(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	var body restartBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, badRequest("invalid JSON in request body"))
		return
	}
	if err := h.Exec.RestartInstance(r.Context(), user, pathVar(r, "id"), body.Deployment); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}
