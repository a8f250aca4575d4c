package rest

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/slateci/slate-federation/internal/api/middleware"
	"github.com/slateci/slate-federation/internal/authz"
	"github.com/slateci/slate-federation/internal/cascade"
	"github.com/slateci/slate-federation/internal/executor"
	"github.com/slateci/slate-federation/internal/kvstore"
	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/procsup"
	"github.com/slateci/slate-federation/internal/store"
)

// writeFakeBin stands in for the real helm/kubectl binaries, mirroring
// internal/executor's test fixture.
func writeFakeBin(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

const anyBinOK = "exit 0\n"

// newTestHandler wires a full Executor/Store/Kernel stack plus a Handler and
// router, matching internal/executor's newTestExecutor fixture so handler
// tests exercise the real authorization and store layers underneath.
func newTestHandler(t *testing.T) (*Handler, *mux.Router, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	backend, err := kvstore.NewSQLite(filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	s := store.New(backend, store.Config{KubeconfigDir: dir})
	az := authz.New(s)
	casc := cascade.New(2)

	binDir := t.TempDir()
	helmPath := writeFakeBin(t, binDir, "helm", anyBinOK)
	kubectlPath := writeFakeBin(t, binDir, "kubectl", anyBinOK)

	exec := executor.New(s, az, procsup.NewSupervisor(), casc, helmPath, kubectlPath)
	h := NewHandler(exec, []byte("test-password"))

	router := mux.NewRouter()
	SetupRoutes(router, h)
	return h, router, s
}

// withUser returns req with u attached to its context, standing in for what
// middleware.Auth would have placed there (these tests exercise the rest
// package in isolation from the auth middleware).
func withUser(req *http.Request, u models.User) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), u))
}

func mustAddUser(t *testing.T, s *store.Store, name string, admin bool) models.User {
	t.Helper()
	u, err := s.AddUser(context.Background(), models.User{Name: name, Email: name + "@example.org", Admin: admin})
	require.NoError(t, err)
	return u
}

func mustAddGroup(t *testing.T, s *store.Store, name string) models.Group {
	t.Helper()
	g, err := s.AddGroup(context.Background(), models.Group{Name: name, Email: name + "@example.org", ScienceField: "Other"})
	require.NoError(t, err)
	return g
}
