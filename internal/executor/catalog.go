package executor

import (
	"context"
	"strings"

	"github.com/slateci/slate-federation/internal/models"
)

// SearchApplications implements the application-catalog search named in
// SPEC_FULL.md §9: substring matching against `helm search repo` output,
// scanning the main repository and, when requested, the development and
// test repositories too. Partial-name matches are preserved in the result
// (operators may rely on them for install), unlike ResolveApplication which
// requires an exact chart-name match.
func (e *Executor) SearchApplications(ctx context.Context, query string, includeDev, includeTest bool) ([]models.Application, error) {
	repos := []models.Repository{models.MainRepository}
	if includeDev {
		repos = append(repos, models.DevelopmentRepository)
	}
	if includeTest {
		repos = append(repos, models.TestRepository)
	}

	var apps []models.Application
	for _, repo := range repos {
		found, err := e.searchRepo(ctx, repo, query)
		if err != nil {
			return nil, err
		}
		apps = append(apps, found...)
	}
	return apps, nil
}

// ResolveApplication implements §4.5.1 step 1: look up name in repo,
// requiring an exact chart-name match (the "exact-match filter pass" run on
// top of helm search's own substring matching).
func (e *Executor) ResolveApplication(ctx context.Context, name string, repo models.Repository) (models.Application, error) {
	candidates, err := e.searchRepo(ctx, repo, name)
	if err != nil {
		return models.Application{}, err
	}
	for _, app := range candidates {
		if app.ChartName == name {
			return app, nil
		}
	}
	return models.Application{}, newError(NotFound, "no application named %q in repository %q", name, repo.String())
}

// ApplicationDefaultValues fetches a chart's default values.yaml content via
// `helm show values`, used both as the GET /apps/{name} response body and as
// InstallApplication's fallback default instance tag source.
func (e *Executor) ApplicationDefaultValues(ctx context.Context, app models.Application) (string, error) {
	repoName := e.repoName(app.Repository)
	res, err := e.helmShowValues(ctx, repoName+"/"+app.ChartName)
	if err != nil {
		return "", newError(UpstreamFailure, "invoking helm: %v", err)
	}
	if res.Status != 0 {
		return "", newError(UpstreamFailure, "%s", firstErrorLine(res.Output+res.Error))
	}
	return res.Output, nil
}

func (e *Executor) repoName(repo models.Repository) string {
	if name, ok := e.RepoNames[repo]; ok {
		return name
	}
	return repo.String()
}

func (e *Executor) searchRepo(ctx context.Context, repo models.Repository, query string) ([]models.Application, error) {
	repoName := e.repoName(repo)
	res, err := e.helmSearchRepo(ctx, repoName, query)
	if err != nil {
		return nil, newError(UpstreamFailure, "invoking helm: %v", err)
	}
	if res.Status != 0 {
		return nil, newError(UpstreamFailure, "%s", firstErrorLine(res.Output+res.Error))
	}
	return parseHelmSearchRows(res.Output, repo, repoName), nil
}

// parseHelmSearchRows parses `helm search repo`'s tabular
// NAME/CHART VERSION/APP VERSION/DESCRIPTION output into Applications. The
// NAME column is "<repoName>/<chartName>"; ChartName strips the prefix.
func parseHelmSearchRows(output string, repo models.Repository, repoName string) []models.Application {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) < 2 {
		return nil
	}
	var apps []models.Application
	for _, line := range lines[1:] {
		fields := strings.SplitN(strings.TrimSpace(line), "\t", 4)
		if len(fields) < 4 {
			fields = strings.Fields(line)
			if len(fields) < 4 {
				continue
			}
			joined := strings.Join(fields[3:], " ")
			fields = append(fields[:3], joined)
		}
		name := strings.TrimSpace(fields[0])
		chartName := strings.TrimPrefix(name, repoName+"/")
		apps = append(apps, models.Application{
			Name:        chartName,
			Repository:  repo,
			ChartName:   chartName,
			Version:     strings.TrimSpace(fields[1]),
			AppVersion:  strings.TrimSpace(fields[2]),
			Description: strings.TrimSpace(fields[3]),
		})
	}
	return apps
}
