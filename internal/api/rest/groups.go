package rest

import (
	"net/http"

	"github.com/slateci/slate-federation/internal/executor"
	"github.com/slateci/slate-federation/internal/models"
)

type groupPayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	ScienceField string `json:"field_of_science"`
	Description  string `json:"description"`
}

func groupMetadata(g models.Group) groupPayload {
	return groupPayload{
		ID: g.ID, Name: g.Name, Email: g.Email, Phone: g.Phone,
		ScienceField: g.ScienceField, Description: g.Description,
	}
}

type groupMetadataBody struct {
	Metadata struct {
		Name         string `json:"name"`
		Email        string `json:"email"`
		Phone        string `json:"phone"`
		ScienceField string `json:"scienceField"`
		Description  string `json:"description"`
	} `json:"metadata"`
}

func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	env, err := h.Exec.ListGroups(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	var body groupMetadataBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, badRequest("invalid JSON in request body"))
		return
	}
	created, err := h.Exec.CreateGroup(r.Context(), user, executor.CreateGroupRequest{
		Name:         body.Metadata.Name,
		Email:        body.Metadata.Email,
		Phone:        body.Metadata.Phone,
		ScienceField: body.Metadata.ScienceField,
		Description:  body.Metadata.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeResource(w, http.StatusOK, "Group", groupMetadata(created))
}

func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.Exec.GetGroup(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeResource(w, http.StatusOK, "Group", groupMetadata(g))
}

func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	var body groupMetadataBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, badRequest("invalid JSON in request body"))
		return
	}
	updated, err := h.Exec.UpdateGroup(r.Context(), user, pathVar(r, "id"), executor.UpdateGroupRequest{
		Email:        body.Metadata.Email,
		Phone:        body.Metadata.Phone,
		ScienceField: body.Metadata.ScienceField,
		Description:  body.Metadata.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeResource(w, http.StatusOK, "Group", groupMetadata(updated))
}

// DeleteGroup implements DELETE /groups/{id}: §4.5.3's cascade delete, which
// removes the group record first, then tears down its instances, secrets and
// namespaces, and finally deletes every cluster the group owns.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	if err := h.Exec.DeleteGroup(r.Context(), user, pathVar(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (h *Handler) GroupMembers(w http.ResponseWriter, r *http.Request) {
	env, err := h.Exec.GroupMembersEnvelope(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}
