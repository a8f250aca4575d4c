// Package audit records mutating requests (installs, deletes, scales,
// secret writes) as structured log lines via internal/pkg/logger, rather
// than a persisted table: the entity model (SPEC_FULL.md §3) has no
// audit-log entity, so the mutating-request trail this package derives is
// observability, not a new store record.
package audit

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/slateci/slate-federation/internal/models"
)

// RequestInfo extracts the authenticated user (if any, "anonymous"
// otherwise) and client IP for an audit line.
func RequestInfo(r *http.Request) (userID, userName, requestIP string) {
	requestIP = r.RemoteAddr
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			requestIP = strings.TrimSpace(xff[:idx])
		} else {
			requestIP = strings.TrimSpace(xff)
		}
	}
	userID, userName = "", "anonymous"
	return userID, userName, requestIP
}

// RequestInfoForUser is RequestInfo plus the user resolved by the auth
// middleware, split out so callers that already have the user (every
// handler, via middleware.UserFromContext) don't re-derive "anonymous".
func RequestInfoForUser(r *http.Request, u models.User) (userID, userName, requestIP string) {
	_, _, requestIP = RequestInfo(r)
	return u.ID, u.Name, requestIP
}

// ActionFromRequest derives a short action verb and the resource id (the
// mux path variable, typically "id") from the request, following this
// domain's §6 route shapes (/groups/{id}, /clusters/{id}, /instances/{id},
// /secrets/{id}) rather than the Kubernetes-resource-kind shape a cluster
// dashboard would use.
func ActionFromRequest(r *http.Request) (action, resourceID string) {
	vars := mux.Vars(r)
	resourceID = vars["id"]

	path := r.URL.Path
	switch r.Method {
	case http.MethodPost:
		switch {
		case strings.Contains(path, "/apps/"):
			action = "install"
		case strings.HasSuffix(path, "/restart"):
			action = "instance_restart"
		case strings.Contains(path, "/secrets"):
			action = "secret_create"
		case strings.Contains(path, "/clusters"):
			action = "cluster_register"
		case strings.Contains(path, "/groups"):
			action = "group_create"
		case strings.Contains(path, "/users"):
			action = "user_create"
		default:
			action = "create"
		}
	case http.MethodPut:
		switch {
		case strings.HasSuffix(path, "/scale"):
			action = "instance_scale"
		case strings.Contains(path, "/ping"):
			action = "cluster_ping"
		default:
			action = "update"
		}
	case http.MethodDelete:
		switch {
		case strings.Contains(path, "/instances"):
			action = "instance_delete"
		case strings.Contains(path, "/secrets"):
			action = "secret_delete"
		case strings.Contains(path, "/clusters"):
			action = "cluster_delete"
		case strings.Contains(path, "/groups"):
			action = "group_delete"
		default:
			action = "delete"
		}
	default:
		action = strings.ToLower(r.Method)
	}
	return action, resourceID
}

// Log emits one structured audit line for a completed mutating request.
func Log(log *slog.Logger, r *http.Request, userID, userName, requestIP string, statusCode int) {
	action, resourceID := ActionFromRequest(r)
	log.Info("audit",
		"action", action,
		"resource_id", resourceID,
		"method", r.Method,
		"path", r.URL.Path,
		"user_id", userID,
		"user_name", userName,
		"request_ip", requestIP,
		"status", statusCode,
	)
}
