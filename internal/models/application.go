package models

// Application is a catalog entry resolved on demand from a Helm repository;
// it is never persisted in the store. Repository selects which of the
// configured Helm repositories (main, development, test) the chart is
// resolved from.
type Application struct {
	Name        string     `json:"name"`
	Repository  Repository `json:"repository"`
	ChartName   string     `json:"chart_name"`
	Version     string     `json:"version"`
	AppVersion  string     `json:"app_version"`
	Description string     `json:"description"`
}

type Repository int

const (
	MainRepository Repository = iota
	DevelopmentRepository
	TestRepository
)

func (r Repository) String() string {
	switch r {
	case DevelopmentRepository:
		return "dev"
	case TestRepository:
		return "test"
	default:
		return "main"
	}
}
