package models

import (
	"strings"
	"time"
)

// ApplicationInstance is a deployed Helm release owned by a Group on a
// Cluster. Name is globally unique among non-deleted instances and is
// derived deterministically as "<group>-<app>[-<tag>]".
type ApplicationInstance struct {
	Valid       bool      `json:"-" db:"-"`
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Application string    `json:"application" db:"application"`
	OwningGroup string    `json:"owning_group" db:"owning_group"`
	Cluster     string    `json:"cluster" db:"cluster"`
	Config      string    `json:"-" db:"config"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

func (i ApplicationInstance) IsValid() bool { return i.Valid }

const MaxInstanceNameLength = 63

// InstanceName composes the deterministic instance name. tag may be empty,
// in which case no trailing "-<tag>" segment is appended.
func InstanceName(group, app, tag string) string {
	name := group + "-" + app
	if tag != "" {
		name += "-" + tag
	}
	return name
}

// ValidInstanceTag reports whether tag is a legal installation tag: lowercase
// alphanumerics and dashes, not ending in a dash.
func ValidInstanceTag(tag string) bool {
	if tag == "" {
		return false
	}
	if strings.HasSuffix(tag, "-") {
		return false
	}
	for _, r := range tag {
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

type InstanceSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Application string    `json:"application"`
	OwningGroup string    `json:"owning_group"`
	Cluster     string    `json:"cluster"`
	CreatedAt   time.Time `json:"created_at"`
}

func (i ApplicationInstance) Summary() InstanceSummary {
	return InstanceSummary{
		ID:          i.ID,
		Name:        i.Name,
		Application: i.Application,
		OwningGroup: i.OwningGroup,
		Cluster:     i.Cluster,
		CreatedAt:   i.CreatedAt,
	}
}
