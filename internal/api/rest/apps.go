package rest

import (
	"net/http"

	"github.com/slateci/slate-federation/internal/executor"
	"github.com/slateci/slate-federation/internal/models"
)

type appPayload struct {
	Name        string `json:"name"`
	Repository  string `json:"repository"`
	ChartName   string `json:"chart_name"`
	Version     string `json:"version"`
	AppVersion  string `json:"app_version"`
	Description string `json:"description"`
}

// appDetailPayload is GET /apps/{name}'s metadata: the catalog entry plus the
// chart's default values.yaml, which InstallApplication also reads for its
// default instance tag.
type appDetailPayload struct {
	appPayload
	Spec string `json:"spec"`
}

func appMetadata(a models.Application) appPayload {
	return appPayload{
		Name: a.Name, Repository: a.Repository.String(), ChartName: a.ChartName,
		Version: a.Version, AppVersion: a.AppVersion, Description: a.Description,
	}
}

// installBody is POST /apps/{name}'s flat request body (no metadata
// wrapper), matching SPEC_FULL.md §8's worked install example.
type installBody struct {
	Group         string `json:"group"`
	Cluster       string `json:"cluster"`
	Configuration string `json:"configuration"`
}

func repoFromQuery(r *http.Request) models.Repository {
	q := r.URL.Query()
	switch {
	case q.Has("test"):
		return models.TestRepository
	case q.Has("dev"):
		return models.DevelopmentRepository
	default:
		return models.MainRepository
	}
}

// SearchApplications implements GET /apps[?dev][&test].
func (h *Handler) SearchApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	apps, err := h.Exec.SearchApplications(r.Context(), q.Get("name"), q.Has("dev"), q.Has("test"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, executor.Envelop("Application", apps))
}

// GetApplication implements GET /apps/{name}: resolves the chart's default
// values.yaml, which InstallApplication also uses as its default tag source.
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	name := pathVar(r, "name")
	repo := repoFromQuery(r)
	app, err := h.Exec.ResolveApplication(r.Context(), name, repo)
	if err != nil {
		writeError(w, err)
		return
	}
	values, err := h.Exec.ApplicationDefaultValues(r.Context(), app)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResource(w, http.StatusOK, "Application", appDetailPayload{appPayload: appMetadata(app), Spec: values})
}

// InstallApplication implements POST /apps/{name}, §4.5.1.
func (h *Handler) InstallApplication(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	name := pathVar(r, "name")
	repo := repoFromQuery(r)

	var body installBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, badRequest("invalid JSON in request body"))
		return
	}

	app, err := h.Exec.ResolveApplication(r.Context(), name, repo)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.Exec.InstallApplication(r.Context(), user, executor.InstallRequest{
		App:             app,
		GroupIDOrName:   body.Group,
		ClusterIDOrName: body.Cluster,
		Configuration:   body.Configuration,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeResource(w, http.StatusOK, "ApplicationInstance", map[string]any{
		"id":       result.Instance.ID,
		"name":     result.Instance.Name,
		"revision": result.Revision,
		"updated":  result.Updated,
	})
}
