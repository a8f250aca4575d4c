package rest

import (
	"net/http"

	"github.com/slateci/slate-federation/internal/executor"
	"github.com/slateci/slate-federation/internal/models"
)

// userPayload is the "metadata" body of a User resource. AccessToken is only
// populated for CreateUser, GetUser and the admin-only FindUser, mirroring
// original_source's UserCommands.cpp: the token is never echoed in listings,
// only when a caller is looking at one specific account they're entitled to
// see.
type userPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token,omitempty"`
	Admin       bool   `json:"admin"`
}

func userMetadata(u models.User, includeToken bool) userPayload {
	p := userPayload{ID: u.ID, Name: u.Name, Email: u.Email, Admin: u.Admin}
	if includeToken {
		p.AccessToken = u.Token
	}
	return p
}

// createUserBody is the decoded POST /users request, matching
// original_source's {metadata:{globusID,name,email,admin}} wrapper.
type createUserBody struct {
	Metadata struct {
		GlobusID    string `json:"globusID"`
		Name        string `json:"name"`
		Email       string `json:"email"`
		Phone       string `json:"phone"`
		Institution string `json:"institution"`
		Admin       bool   `json:"admin"`
	} `json:"metadata"`
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	env, err := h.Exec.ListUsers(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	var body createUserBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, badRequest("invalid JSON in request body"))
		return
	}
	created, err := h.Exec.CreateUser(r.Context(), user, executor.CreateUserRequest{
		Name:        body.Metadata.Name,
		Email:       body.Metadata.Email,
		Phone:       body.Metadata.Phone,
		Institution: body.Metadata.Institution,
		ExternalID:  body.Metadata.GlobusID,
		Admin:       body.Metadata.Admin,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeResource(w, http.StatusOK, "User", userMetadata(created, true))
}

func (h *Handler) FindUser(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	externalID := r.URL.Query().Get("globus_id")
	found, err := h.Exec.FindUserByExternalID(r.Context(), user, externalID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResource(w, http.StatusOK, "User", userMetadata(found, true))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	id := pathVar(r, "id")
	target, err := h.Exec.GetUser(r.Context(), user, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResource(w, http.StatusOK, "User", userMetadata(target, true))
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	id := pathVar(r, "id")
	if err := h.Exec.DeleteUser(r.Context(), user, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (h *Handler) UserGroups(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	id := pathVar(r, "id")
	env, err := h.Exec.UserGroupsEnvelope(r.Context(), user, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) AddUserToGroup(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	id := pathVar(r, "id")
	groupID := pathVar(r, "group_id")
	if err := h.Exec.AddUserToGroup(r.Context(), user, id, groupID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (h *Handler) RemoveUserFromGroup(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	id := pathVar(r, "id")
	groupID := pathVar(r, "group_id")
	if err := h.Exec.RemoveUserFromGroup(r.Context(), user, id, groupID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}
