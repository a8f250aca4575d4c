package executor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/slateci/slate-federation/internal/pkg/metrics"
	"github.com/slateci/slate-federation/internal/procsup"
	"github.com/slateci/slate-federation/internal/resilience"
)

// runHelm runs a helm subprocess, recording its outcome and latency under
// the subcommand name (args[0]) for HelmInvocationsTotal/
// HelmInvocationDurationSeconds.
func (e *Executor) runHelm(ctx context.Context, args []string, env map[string]string) (procsup.Result, error) {
	start := time.Now()
	res, err := procsup.RunCommand(ctx, e.HelmBin, args, env)
	metrics.HelmInvocationDurationSeconds.WithLabelValues(args[0]).Observe(time.Since(start).Seconds())
	metrics.HelmInvocationsTotal.WithLabelValues(args[0], outcomeLabel(res, err)).Inc()
	return res, err
}

func (e *Executor) runHelmWithInput(ctx context.Context, args []string, input string, env map[string]string) (procsup.Result, error) {
	start := time.Now()
	res, err := procsup.RunCommandWithInput(ctx, e.HelmBin, args, input, env)
	metrics.HelmInvocationDurationSeconds.WithLabelValues(args[0]).Observe(time.Since(start).Seconds())
	metrics.HelmInvocationsTotal.WithLabelValues(args[0], outcomeLabel(res, err)).Inc()
	return res, err
}

// runKubectl runs a kubectl subprocess, recording its outcome under the
// subcommand name (args[0]) for KubectlInvocationsTotal.
func (e *Executor) runKubectl(ctx context.Context, args []string, env map[string]string) (procsup.Result, error) {
	res, err := procsup.RunCommand(ctx, e.KubectlBin, args, env)
	metrics.KubectlInvocationsTotal.WithLabelValues(args[0], outcomeLabel(res, err)).Inc()
	return res, err
}

func (e *Executor) runKubectlWithInput(ctx context.Context, args []string, input string, env map[string]string) (procsup.Result, error) {
	res, err := procsup.RunCommandWithInput(ctx, e.KubectlBin, args, input, env)
	metrics.KubectlInvocationsTotal.WithLabelValues(args[0], outcomeLabel(res, err)).Inc()
	return res, err
}

func outcomeLabel(res procsup.Result, err error) string {
	if err != nil || res.Status != 0 {
		return "failure"
	}
	return "success"
}

// writeScratchKubeconfig materializes a kubeconfig not yet tied to a stored
// cluster record, for the connectivity check RegisterCluster/UpdateCluster
// run before a cluster record exists to own the file. The caller must
// invoke the returned cleanup func once done.
func writeScratchKubeconfig(config string) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "slate-kubeconfig-*.yaml")
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	if _, err := f.WriteString(config); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

// kubeEnv overlays KUBECONFIG for the duration of one Helm/kubectl
// invocation, matching the reference's convention of pointing every
// subprocess at the cluster's materialized kubeconfig file.
func kubeEnv(kubeconfigPath string) map[string]string {
	return map[string]string{"KUBECONFIG": kubeconfigPath}
}

// withKubeconfig materializes clusterID's kubeconfig and runs fn against it,
// guarded by that cluster's circuit breaker and retried on transient
// (network/timeout) failures per internal/resilience. A cluster with 5
// consecutive transient failures fails fast for 30s rather than piling up
// blocked helm/kubectl invocations against an unreachable control plane.
func (e *Executor) withKubeconfig(ctx context.Context, clusterID string, fn func(kubeconfigPath string) error) error {
	h, err := e.Store.ConfigPathForCluster(ctx, clusterID)
	if err != nil {
		return fmt.Errorf("resolving kubeconfig: %w", err)
	}
	defer h.Release()

	cb := e.circuitBreakerFor(clusterID)
	err = cb.Execute(ctx, func() error {
		return resilience.DoWithRetry(ctx, 3, func() error {
			return fn(h.Path())
		})
	})
	if err == resilience.ErrCircuitOpen {
		return newError(UpstreamFailure, "cluster %s: %v", clusterID, err)
	}
	return err
}

// helmInstall runs `helm install <release> <repo>/<chart> --namespace <ns>
// --values <file>` and returns its combined result.
func (e *Executor) helmInstall(ctx context.Context, kubeconfigPath, release, repoChart, namespace, valuesFile string) (procsup.Result, error) {
	args := []string{"install", release, repoChart, "--namespace", namespace, "--create-namespace", "--values", valuesFile}
	return e.runHelm(ctx, args, kubeEnv(kubeconfigPath))
}

// helmDeletePurge runs `helm delete --purge <release>` (idempotent per
// §4.5.2: success also covers "already gone").
func (e *Executor) helmDeletePurge(ctx context.Context, kubeconfigPath, release string) (procsup.Result, error) {
	return e.runHelm(ctx, []string{"delete", "--purge", release}, kubeEnv(kubeconfigPath))
}

// helmList runs `helm list <filter>` to fetch a release's revision/updated
// fields for the response envelope (§4.5.1 step 9).
func (e *Executor) helmList(ctx context.Context, kubeconfigPath, filter string) (procsup.Result, error) {
	return e.runHelm(ctx, []string{"list", filter}, kubeEnv(kubeconfigPath))
}

// helmSearchRepo runs `helm search repo <repoName>/<query>`. It needs no
// cluster kubeconfig: repo search only touches the local chart repository
// cache, not a specific cluster.
func (e *Executor) helmSearchRepo(ctx context.Context, repoName, query string) (procsup.Result, error) {
	return e.runHelm(ctx, []string{"search", "repo", repoName + "/" + query}, nil)
}

// helmShowValues runs `helm show values <repoChart>`.
func (e *Executor) helmShowValues(ctx context.Context, repoChart string) (procsup.Result, error) {
	return e.runHelm(ctx, []string{"show", "values", repoChart}, nil)
}

// kubectlApplyStdin runs `kubectl apply -f -` feeding manifest on stdin.
func (e *Executor) kubectlApplyStdin(ctx context.Context, kubeconfigPath, manifest string) (procsup.Result, error) {
	return e.runKubectlWithInput(ctx, []string{"apply", "-f", "-"}, manifest, kubeEnv(kubeconfigPath))
}

// kubectlDeleteNamespace runs `kubectl delete namespace <ns>`, treating
// "not found" as success (the namespace is already gone).
func (e *Executor) kubectlDeleteNamespace(ctx context.Context, kubeconfigPath, namespace string) error {
	res, err := e.runKubectl(ctx, []string{"delete", "namespace", namespace}, kubeEnv(kubeconfigPath))
	if err != nil {
		return err
	}
	if res.Status == 0 || isNotFoundOutput(res.Error) {
		return nil
	}
	return fmt.Errorf("kubectl delete namespace %s failed: %s", namespace, firstErrorLine(res.Error))
}

// kubectlLogs runs `kubectl logs -l app.kubernetes.io/instance=<release>
// --tail=<maxLines> [-c <container>] [-p] --namespace <ns>`, following the
// standard Helm chart label convention (app.kubernetes.io/instance) to
// address the release's pod(s) without needing to know individual pod
// names.
func (e *Executor) kubectlLogs(ctx context.Context, kubeconfigPath, namespace, release string, maxLines int, container string, previous bool) (procsup.Result, error) {
	args := []string{
		"logs",
		"-l", "app.kubernetes.io/instance=" + release,
		"--namespace", namespace,
		"--tail", fmt.Sprintf("%d", maxLines),
	}
	if container != "" {
		args = append(args, "-c", container)
	}
	if previous {
		args = append(args, "-p")
	}
	return e.runKubectl(ctx, args, kubeEnv(kubeconfigPath))
}

// kubectlScale runs `kubectl scale deployment/<deployment> --replicas=<n>
// --namespace <ns>`.
func (e *Executor) kubectlScale(ctx context.Context, kubeconfigPath, namespace, deployment string, replicas int) (procsup.Result, error) {
	args := []string{
		"scale", "deployment/" + deployment,
		"--replicas", fmt.Sprintf("%d", replicas),
		"--namespace", namespace,
	}
	return e.runKubectl(ctx, args, kubeEnv(kubeconfigPath))
}

// kubectlRolloutRestart runs `kubectl rollout restart deployment/<deployment>
// --namespace <ns>`.
func (e *Executor) kubectlRolloutRestart(ctx context.Context, kubeconfigPath, namespace, deployment string) (procsup.Result, error) {
	args := []string{"rollout", "restart", "deployment/" + deployment, "--namespace", namespace}
	return e.runKubectl(ctx, args, kubeEnv(kubeconfigPath))
}

// kubectlDeleteSecret runs `kubectl delete secret <name> --namespace <ns>`,
// treating "not found" as success, matching kubectlDeleteNamespace's
// idempotent-delete convention.
func (e *Executor) kubectlDeleteSecret(ctx context.Context, kubeconfigPath, namespace, name string) error {
	res, err := e.runKubectl(ctx, []string{"delete", "secret", name, "--namespace", namespace}, kubeEnv(kubeconfigPath))
	if err != nil {
		return err
	}
	if res.Status == 0 || isNotFoundOutput(res.Error) {
		return nil
	}
	return fmt.Errorf("kubectl delete secret %s failed: %s", name, firstErrorLine(res.Error))
}

// kubectlClusterInfo runs `kubectl cluster-info` to confirm a kubeconfig
// actually reaches a live API server, used by RegisterCluster/PingCluster.
func (e *Executor) kubectlClusterInfo(ctx context.Context, kubeconfigPath string) (procsup.Result, error) {
	return e.runKubectl(ctx, []string{"cluster-info"}, kubeEnv(kubeconfigPath))
}

func isNotFoundOutput(output string) bool {
	return strings.Contains(output, "NotFound") || strings.Contains(output, "not found")
}

// firstErrorLine returns the first line of output containing "Error" or
// "error", falling back to the first line, matching §4.5.1 step 8's "first
// Error-containing line of helm output".
func firstErrorLine(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Error") || strings.Contains(line, "error") {
			return strings.TrimSpace(line)
		}
	}
	lines := strings.SplitN(output, "\n", 2)
	if len(lines) > 0 {
		return strings.TrimSpace(lines[0])
	}
	return output
}

// releaseDeletedOrGone reports whether helm's output indicates successful
// deletion (either an explicit "release \"<name>\" deleted" message or an
// error indicating the release was already gone).
func releaseDeletedOrGone(name string, res procsup.Result) bool {
	if res.Status == 0 && strings.Contains(res.Output, fmt.Sprintf("release %q deleted", name)) {
		return true
	}
	combined := res.Output + res.Error
	return strings.Contains(combined, "not found") || strings.Contains(combined, "release: not found")
}

// writeTempValues writes content to a fresh temp file (deleted by the
// caller via the returned cleanup func) for use as a helm --values argument.
func writeTempValues(content string) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "slate-values-*.yaml")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp values file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("writing temp values file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("closing temp values file: %w", err)
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
