package models

import "strings"

// Group is a research collaboration: it owns Clusters, ApplicationInstances
// and Secrets, and its membership determines who may act on those resources.
type Group struct {
	Valid        bool   `json:"-" db:"-"`
	ID           string `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	Phone        string `json:"phone" db:"phone"`
	ScienceField string `json:"field_of_science" db:"field_of_science"`
	Description  string `json:"description" db:"description"`
}

func (g Group) IsValid() bool { return g.Valid }

// NamespaceName is the deterministic Kubernetes namespace a Group is given
// on every Cluster it is permitted to use.
func (g Group) NamespaceName() string { return GroupNamespacePrefix + g.Name }

const GroupNamespacePrefix = "slate-group-"

const MaxGroupNameLength = 54

// ScienceFields is the closed vocabulary groups must declare a field from.
var ScienceFields = map[string]bool{
	"Biological and Biomedical Sciences":          true,
	"Chemistry":                                   true,
	"Computer and Information Science and Engineering": true,
	"Earth Sciences":                              true,
	"Education Research":                          true,
	"Geosciences":                                 true,
	"Materials Research":                          true,
	"Mathematical Sciences":                       true,
	"Physics":                                     true,
	"Social, Behavioral, and Economic Sciences":   true,
	"Other":                                       true,
}

func ValidScienceField(field string) bool { return ScienceFields[field] }

// ValidGroupName reports whether name is globally acceptable as a Group
// name: DNS-safe, at most MaxGroupNameLength characters, not ending in a
// dash, and not colliding with the namespace prefix reserved for the
// federation's own bookkeeping namespaces.
func ValidGroupName(name string) bool {
	if name == "" || len(name) > MaxGroupNameLength {
		return false
	}
	if strings.HasSuffix(name, "-") || strings.HasPrefix(name, "-") {
		return false
	}
	if strings.HasPrefix(name, "slate-") {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}

type GroupSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (g Group) Summary() GroupSummary { return GroupSummary{ID: g.ID, Name: g.Name} }
