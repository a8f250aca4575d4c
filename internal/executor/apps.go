package executor

import (
	"context"
	"errors"
	"strings"

	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/pkg/metrics"
	"github.com/slateci/slate-federation/internal/store"
	"gopkg.in/yaml.v3"
)

// InstallRequest carries everything InstallApplication needs. App is
// resolved by the caller against the chosen repository (catalog lookups
// are not part of the store — applications are never persisted, per §3).
type InstallRequest struct {
	App             models.Application
	GroupIDOrName   string
	ClusterIDOrName string
	Configuration   string
}

// InstallResult is the response envelope for a successful install.
type InstallResult struct {
	Instance models.ApplicationInstance
	Revision string
	Updated  string
}

// configDoc mirrors the single field InstallApplication scans for: a
// top-level "Instance" scalar naming the installation tag.
type configDoc struct {
	Instance string `yaml:"Instance"`
}

// InstallApplication implements §4.5.1.
func (e *Executor) InstallApplication(ctx context.Context, user models.User, req InstallRequest) (InstallResult, error) {
	defaultTag, err := e.defaultInstanceTag(ctx, req)
	if err != nil {
		return InstallResult{}, err
	}
	tag, err := extractTag(req.Configuration, defaultTag)
	if err != nil {
		return InstallResult{}, err
	}
	if !models.ValidInstanceTag(tag) {
		return InstallResult{}, newError(BadRequest, "invalid installation tag %q", tag)
	}

	group, err := e.Store.GetGroupByIDOrName(ctx, req.GroupIDOrName)
	if err != nil {
		return InstallResult{}, newError(StoreFailure, "%v", err)
	}
	if !group.Valid {
		return InstallResult{}, newError(NotFound, "no such group %q", req.GroupIDOrName)
	}
	cluster, err := e.Store.GetClusterByIDOrName(ctx, req.ClusterIDOrName)
	if err != nil {
		return InstallResult{}, newError(StoreFailure, "%v", err)
	}
	if !cluster.Valid {
		return InstallResult{}, newError(NotFound, "no such cluster %q", req.ClusterIDOrName)
	}

	member, err := e.Authz.MayActOnGroup(ctx, user, group.ID)
	if err != nil {
		return InstallResult{}, newError(StoreFailure, "%v", err)
	}
	if !member {
		return InstallResult{}, newError(Forbidden, "user is not a member of group %s", group.Name)
	}
	allowed, err := e.Authz.MayInstallOnCluster(ctx, group.ID, cluster.ID, req.App.Name)
	if err != nil {
		return InstallResult{}, newError(StoreFailure, "%v", err)
	}
	if !allowed {
		return InstallResult{}, newError(Forbidden, "group %s may not install %s on cluster %s", group.Name, req.App.Name, cluster.Name)
	}

	instanceName := models.InstanceName(group.Name, req.App.Name, tag)
	if len(instanceName) > models.MaxInstanceNameLength {
		return InstallResult{}, newError(BadRequest, "instance name %q exceeds %d characters", instanceName, models.MaxInstanceNameLength)
	}

	canonical := canonicalizeConfig(req.Configuration)
	inst, err := e.Store.AddApplicationInstance(ctx, models.ApplicationInstance{
		Name:        instanceName,
		Application: req.App.Name,
		OwningGroup: group.ID,
		Cluster:     cluster.ID,
		Config:      canonical,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return InstallResult{}, newError(Conflict, "instance name %q already in use", instanceName)
		}
		return InstallResult{}, newError(StoreFailure, "%v", err)
	}

	var result InstallResult
	installErr := e.withKubeconfig(ctx, cluster.ID, func(kubeconfigPath string) error {
		valuesFile, cleanup, err := writeTempValues(canonical)
		if err != nil {
			return newError(StoreFailure, "%v", err)
		}
		defer cleanup()

		repoChart := e.repoName(req.App.Repository) + "/" + req.App.ChartName
		res, err := e.helmInstall(ctx, kubeconfigPath, instanceName, repoChart, group.NamespaceName(), valuesFile)
		if err != nil {
			return newError(UpstreamFailure, "invoking helm: %v", err)
		}
		if res.Status != 0 {
			_, _ = e.helmDeletePurge(ctx, kubeconfigPath, instanceName)
			return newError(UpstreamFailure, "%s", firstErrorLine(res.Output+res.Error))
		}

		listRes, err := e.helmList(ctx, kubeconfigPath, instanceName)
		if err == nil && listRes.Status == 0 {
			rev, updated := parseHelmListFields(listRes.Output, instanceName)
			result.Revision = rev
			result.Updated = updated
		}
		return nil
	})

	if installErr != nil {
		_ = e.Store.RemoveApplicationInstance(ctx, inst.ID)
		return InstallResult{}, installErr
	}

	result.Instance = inst
	metrics.InstancesInstalledTotal.WithLabelValues(req.App.Name).Inc()
	return result, nil
}

// defaultInstanceTag fetches the chart's default values.yaml and extracts
// its own "Instance" tag, used as the fallback when the caller's
// Configuration names none (§4.5.1 step 2). It skips the helm round trip
// entirely when Configuration already supplies a tag.
func (e *Executor) defaultInstanceTag(ctx context.Context, req InstallRequest) (string, error) {
	if _, ok := scanTag(req.Configuration); ok {
		return "", nil
	}
	defaults, err := e.ApplicationDefaultValues(ctx, req.App)
	if err != nil {
		return "", err
	}
	tag, _ := scanTag(defaults)
	return tag, nil
}

// scanTag walks a sequence of YAML documents in config looking for a
// top-level "Instance:" scalar, returning it and true on the first match.
func scanTag(config string) (string, bool) {
	dec := yaml.NewDecoder(strings.NewReader(config))
	for {
		var doc configDoc
		if dec.Decode(&doc) != nil {
			return "", false
		}
		if doc.Instance != "" {
			return doc.Instance, true
		}
	}
}

// extractTag resolves the installation tag: an explicit "Instance:" scalar
// in config, falling back to defaultTag; BadRequest if neither supplies one
// (§4.5.1 step 2).
func extractTag(config, defaultTag string) (string, error) {
	if tag, ok := scanTag(config); ok {
		return tag, nil
	}
	if defaultTag != "" {
		return defaultTag, nil
	}
	return "", newError(BadRequest, "no installation tag given and chart defines no default")
}

// canonicalizeConfig strips comment lines and trailing whitespace from
// config, matching §4.5.1 step 6's "canonicalized (whitespace/comment-
// reduced) copy".
func canonicalizeConfig(config string) string {
	lines := strings.Split(config, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(trimmed), "#") {
			continue
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n") + "\n"
}

// parseHelmListFields extracts the REVISION and UPDATED columns for
// release from `helm list`'s tabular output.
func parseHelmListFields(output, release string) (revision, updated string) {
	lines := strings.Split(output, "\n")
	if len(lines) < 2 {
		return "", ""
	}
	headers := strings.Fields(lines[0])
	revCol, updCol := -1, -1
	for i, h := range headers {
		switch strings.ToUpper(h) {
		case "REVISION":
			revCol = i
		case "UPDATED":
			updCol = i
		}
	}
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != release {
			continue
		}
		if revCol >= 0 && revCol < len(fields) {
			revision = fields[revCol]
		}
		if updCol >= 0 && updCol < len(fields) {
			updated = fields[updCol]
		}
		return
	}
	return
}
