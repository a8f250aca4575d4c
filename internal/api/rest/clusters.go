package rest

import (
	"net/http"

	"github.com/slateci/slate-federation/internal/executor"
	"github.com/slateci/slate-federation/internal/models"
)

type clusterPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OwningGroup string `json:"owning_group"`
	OwningOrg   string `json:"owning_organization"`
}

func clusterMetadata(c models.Cluster) clusterPayload {
	return clusterPayload{ID: c.ID, Name: c.Name, OwningGroup: c.OwningGroup, OwningOrg: c.OwningOrg}
}

type registerClusterBody struct {
	Metadata struct {
		Name         string `json:"name"`
		Group        string `json:"group"`
		Organization string `json:"organization"`
		Kubeconfig   string `json:"kubeconfig"`
	} `json:"metadata"`
}

type updateClusterBody struct {
	Metadata struct {
		Organization string `json:"organization"`
		Kubeconfig   string `json:"kubeconfig"`
	} `json:"metadata"`
}

func (h *Handler) ListClusters(w http.ResponseWriter, r *http.Request) {
	env, err := h.Exec.ListClusters(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) RegisterCluster(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	var body registerClusterBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, badRequest("invalid JSON in request body"))
		return
	}
	created, err := h.Exec.RegisterCluster(r.Context(), user, executor.RegisterClusterRequest{
		Name:       body.Metadata.Name,
		Group:      body.Metadata.Group,
		Org:        body.Metadata.Organization,
		Kubeconfig: body.Metadata.Kubeconfig,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeResource(w, http.StatusOK, "Cluster", clusterMetadata(created))
}

func (h *Handler) GetCluster(w http.ResponseWriter, r *http.Request) {
	c, err := h.Exec.GetClusterByID(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeResource(w, http.StatusOK, "Cluster", clusterMetadata(c))
}

func (h *Handler) UpdateCluster(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	var body updateClusterBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, badRequest("invalid JSON in request body"))
		return
	}
	updated, err := h.Exec.UpdateCluster(r.Context(), user, pathVar(r, "id"), executor.UpdateClusterRequest{
		Org:        body.Metadata.Organization,
		Kubeconfig: body.Metadata.Kubeconfig,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeResource(w, http.StatusOK, "Cluster", clusterMetadata(updated))
}

// DeleteCluster implements DELETE /clusters/{id}. Cascading every Secret and
// ApplicationInstance the cluster owns is internal/cascade's responsibility;
// the executor layer for it is grounded alongside the group cascade-delete
// path rather than in this file.
func (h *Handler) DeleteCluster(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	if err := h.Exec.DeleteCluster(r.Context(), user, pathVar(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (h *Handler) GrantGroupAccess(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	if err := h.Exec.GrantGroupAccess(r.Context(), user, pathVar(r, "id"), pathVar(r, "gid")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (h *Handler) RevokeGroupAccess(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	if err := h.Exec.RevokeGroupAccess(r.Context(), user, pathVar(r, "id"), pathVar(r, "gid")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (h *Handler) GrantApp(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	if err := h.Exec.GrantApp(r.Context(), user, pathVar(r, "id"), pathVar(r, "gid"), pathVar(r, "app")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (h *Handler) RevokeApp(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	if err := h.Exec.RevokeApp(r.Context(), user, pathVar(r, "id"), pathVar(r, "gid"), pathVar(r, "app")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}
