package executor

import (
	"sync"

	"github.com/slateci/slate-federation/internal/authz"
	"github.com/slateci/slate-federation/internal/cascade"
	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/procsup"
	"github.com/slateci/slate-federation/internal/resilience"
	"github.com/slateci/slate-federation/internal/store"
)

// Executor bundles the dependencies every command handler needs: the
// persistent store, the authorization kernel, the process supervisor for
// Helm/kubectl invocations, and a cascade coordinator for fan-out deletes.
type Executor struct {
	Store      *store.Store
	Authz      *authz.Kernel
	Super      *procsup.Supervisor
	Cascade    *cascade.Coordinator
	HelmBin    string
	KubectlBin string
	// RepoNames maps each catalog repository to the `helm repo add` name
	// it was registered under, so SearchApplications/ResolveApplication
	// know which configured repo to query (§4.5.1 step 1).
	RepoNames map[models.Repository]string

	breakersMu sync.Mutex
	breakers   map[string]*resilience.CircuitBreaker
}

// New constructs an Executor. helmBin/kubectlBin may be bare names
// ("helm", "kubectl") to be resolved against PATH, or absolute paths.
func New(s *store.Store, az *authz.Kernel, super *procsup.Supervisor, casc *cascade.Coordinator, helmBin, kubectlBin string) *Executor {
	if helmBin == "" {
		helmBin = "helm"
	}
	if kubectlBin == "" {
		kubectlBin = "kubectl"
	}
	return &Executor{
		Store:      s,
		Authz:      az,
		Super:      super,
		Cascade:    casc,
		HelmBin:    helmBin,
		KubectlBin: kubectlBin,
		RepoNames: map[models.Repository]string{
			models.MainRepository:        "main",
			models.DevelopmentRepository: "dev",
			models.TestRepository:        "test",
		},
		breakers: make(map[string]*resilience.CircuitBreaker),
	}
}

// circuitBreakerFor returns the (lazily created) circuit breaker guarding
// clusterID's helm/kubectl invocations.
func (e *Executor) circuitBreakerFor(clusterID string) *resilience.CircuitBreaker {
	e.breakersMu.Lock()
	defer e.breakersMu.Unlock()
	cb, ok := e.breakers[clusterID]
	if !ok {
		cb = resilience.NewCircuitBreaker(clusterID)
		e.breakers[clusterID] = cb
	}
	return cb
}
