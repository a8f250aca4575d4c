package models

// Cluster is a remote Kubernetes cluster registered with the federation.
// Credentials are stored verbatim as the cluster's kubeconfig YAML; nothing
// in the core ever opens a client connection to it directly — all access
// goes through the process supervisor's helm/kubectl invocations.
type Cluster struct {
	Valid           bool       `json:"-" db:"-"`
	ID              string     `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	OwningGroup     string     `json:"owning_group" db:"owning_group"`
	OwningOrg       string     `json:"owning_organization" db:"owning_organization"`
	Config          string     `json:"-" db:"config"` // kubeconfig YAML, never echoed back to clients
	SystemNamespace string     `json:"system_namespace" db:"system_namespace"`
	Locations       []GeoPoint `json:"locations,omitempty" db:"-"`
}

func (c Cluster) IsValid() bool { return c.Valid }

type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

type ClusterSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OwningGroup string `json:"owning_group"`
	OwningOrg   string `json:"owning_organization"`
}

func (c Cluster) Summary() ClusterSummary {
	return ClusterSummary{ID: c.ID, Name: c.Name, OwningGroup: c.OwningGroup, OwningOrg: c.OwningOrg}
}
