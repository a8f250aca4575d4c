// Package rest implements the §6 HTTP surface over internal/executor,
// grounded on the teacher's internal/api/rest package (Handler/NewHandler/
// SetupRoutes shape) but rewritten against this domain's flatter command
// surface: every handler resolves the authenticated user from context,
// decodes a request body where one applies, calls exactly one
// *executor.Executor method, and writes either the method's result or the
// §7 error envelope.
package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/slateci/slate-federation/internal/api/middleware"
	"github.com/slateci/slate-federation/internal/executor"
	"github.com/slateci/slate-federation/internal/models"
)

// Handler bundles the executor every route dispatches into, plus the
// operator-configured secret encryption key (SPEC_FULL.md §9) that never
// flows through the executor itself since it's a server-config concern, not
// domain state.
type Handler struct {
	Exec           *executor.Executor
	SecretPassword []byte
}

// NewHandler constructs a Handler.
func NewHandler(exec *executor.Executor, secretPassword []byte) *Handler {
	return &Handler{Exec: exec, SecretPassword: secretPassword}
}

// SetupRoutes registers the service's routes on router. Of the §6 table, it
// registers no user-update route (PUT /v1alpha3/users/{id}) and no GET on the
// /clusters/{id}/allowed_groups routes; secrets support create, get, list
// and delete, with no copy.
func SetupRoutes(router *mux.Router, h *Handler) {
	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)

	router.HandleFunc("/v1alpha3/users", h.ListUsers).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/users", h.CreateUser).Methods(http.MethodPost)
	router.HandleFunc("/v1alpha3/find_user", h.FindUser).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/users/{id}", h.GetUser).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/users/{id}", h.DeleteUser).Methods(http.MethodDelete)
	router.HandleFunc("/v1alpha3/users/{id}/groups", h.UserGroups).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/users/{id}/groups/{group_id}", h.AddUserToGroup).Methods(http.MethodPut)
	router.HandleFunc("/v1alpha3/users/{id}/groups/{group_id}", h.RemoveUserFromGroup).Methods(http.MethodDelete)

	router.HandleFunc("/v1alpha3/groups", h.ListGroups).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/groups", h.CreateGroup).Methods(http.MethodPost)
	router.HandleFunc("/v1alpha3/groups/{id}", h.GetGroup).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/groups/{id}", h.UpdateGroup).Methods(http.MethodPut)
	router.HandleFunc("/v1alpha3/groups/{id}", h.DeleteGroup).Methods(http.MethodDelete)
	router.HandleFunc("/v1alpha3/groups/{id}/members", h.GroupMembers).Methods(http.MethodGet)

	router.HandleFunc("/v1alpha3/clusters", h.ListClusters).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/clusters", h.RegisterCluster).Methods(http.MethodPost)
	router.HandleFunc("/v1alpha3/clusters/{id}", h.GetCluster).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/clusters/{id}", h.UpdateCluster).Methods(http.MethodPut)
	router.HandleFunc("/v1alpha3/clusters/{id}", h.DeleteCluster).Methods(http.MethodDelete)
	router.HandleFunc("/v1alpha3/clusters/{id}/allowed_groups/{gid}", h.GrantGroupAccess).Methods(http.MethodPut)
	router.HandleFunc("/v1alpha3/clusters/{id}/allowed_groups/{gid}", h.RevokeGroupAccess).Methods(http.MethodDelete)
	router.HandleFunc("/v1alpha3/clusters/{id}/allowed_groups/{gid}/applications/{app}", h.GrantApp).Methods(http.MethodPut)
	router.HandleFunc("/v1alpha3/clusters/{id}/allowed_groups/{gid}/applications/{app}", h.RevokeApp).Methods(http.MethodDelete)

	router.HandleFunc("/v1alpha3/apps", h.SearchApplications).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/apps/{name}", h.GetApplication).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/apps/{name}", h.InstallApplication).Methods(http.MethodPost)

	router.HandleFunc("/v1alpha3/instances", h.ListInstances).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/instances/{id}", h.GetInstance).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/instances/{id}", h.DeleteInstance).Methods(http.MethodDelete)
	router.HandleFunc("/v1alpha3/instances/{id}/logs", h.InstanceLogs).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/instances/{id}/scale", h.ScaleInstance).Methods(http.MethodPut)
	router.HandleFunc("/v1alpha3/instances/{id}/restart", h.RestartInstance).Methods(http.MethodPost)

	router.HandleFunc("/v1alpha3/secrets", h.ListSecrets).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/secrets", h.CreateSecret).Methods(http.MethodPost)
	router.HandleFunc("/v1alpha3/secrets/{id}", h.GetSecret).Methods(http.MethodGet)
	router.HandleFunc("/v1alpha3/secrets/{id}", h.DeleteSecret).Methods(http.MethodDelete)
}

// Healthz reports liveness. It never requires a token (middleware.Auth
// exempts it).
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// currentUser resolves the authenticated user middleware.Auth already
// placed in context; every route but /healthz and /metrics guarantees one.
func currentUser(r *http.Request) (models.User, bool) {
	return middleware.UserFromContext(r.Context())
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

// resource is the single-item response envelope original_source wraps every
// User/Group/Cluster get/create/update response in: {apiVersion, kind,
// metadata: <payload>}. writeResource is the non-listing counterpart of
// executor.Envelop, which handles the equivalent multi-item shape.
type resource struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
	Metadata   any    `json:"metadata"`
}

func writeResource(w http.ResponseWriter, status int, kind string, metadata any) {
	writeJSON(w, status, resource{APIVersion: "v1alpha3", Kind: kind, Metadata: metadata})
}

// badRequest builds a §7 BadRequest for failures caught in the handler layer
// itself (malformed JSON, missing path params) before an executor method is
// ever called.
func badRequest(format string, args ...any) *executor.Error {
	return &executor.Error{Kind: executor.BadRequest, Message: fmt.Sprintf(format, args...)}
}
