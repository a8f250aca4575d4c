package rest

import (
	"net/http"

	"github.com/slateci/slate-federation/internal/executor"
	"github.com/slateci/slate-federation/internal/models"
)

type secretPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OwningGroup string `json:"owning_group"`
	Cluster     string `json:"cluster"`
}

func secretMetadata(s models.Secret) secretPayload {
	return secretPayload{ID: s.ID, Name: s.Name, OwningGroup: s.OwningGroup, Cluster: s.Cluster}
}

type createSecretBody struct {
	Metadata struct {
		Name    string            `json:"name"`
		Group   string            `json:"group"`
		Cluster string            `json:"cluster"`
		Data    map[string]string `json:"data"`
	} `json:"metadata"`
}

func (h *Handler) ListSecrets(w http.ResponseWriter, r *http.Request) {
	env, err := h.Exec.ListSecrets(r.Context(), r.URL.Query().Get("group"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) CreateSecret(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	var body createSecretBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, badRequest("invalid JSON in request body"))
		return
	}
	created, err := h.Exec.CreateSecret(r.Context(), user, executor.CreateSecretRequest{
		Name:               body.Metadata.Name,
		GroupIDOrName:      body.Metadata.Group,
		ClusterIDOrName:    body.Metadata.Cluster,
		Data:               body.Metadata.Data,
		EncryptionPassword: h.SecretPassword,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeResource(w, http.StatusOK, "Secret", secretMetadata(created))
}

func (h *Handler) GetSecret(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	sec, err := h.Exec.GetSecret(r.Context(), user, pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeResource(w, http.StatusOK, "Secret", secretMetadata(sec))
}

func (h *Handler) DeleteSecret(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	if err := h.Exec.DeleteSecret(r.Context(), user, pathVar(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}
