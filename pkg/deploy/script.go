package deploy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/helm/pkg/strvals"

	"github.com/kooba/ditc-deployer/pkg/config"
)

// Revisions end up on a shell command line, so only allow what a
// commit sha or tag-ish name could contain.
var revisionRegexp = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Request is a single, fully resolved deployment.
type Request struct {
	EnvironmentName string
	GitSHA          string
}

func (r Request) validate() error {
	if errs := validation.IsDNS1123Label(r.EnvironmentName); len(errs) > 0 {
		return fmt.Errorf("environment name %q is not a valid namespace: %s", r.EnvironmentName, strings.Join(errs, "; "))
	}
	if !revisionRegexp.MatchString(r.GitSHA) {
		return fmt.Errorf("revision %q is not a commit sha", r.GitSHA)
	}
	return nil
}

// values are the chart values set for a deployment, in the order
// they are passed to helm. Configured chart values come last, and may
// not set anything the deployment itself sets.
func values(cfg config.Config, r Request) ([]string, error) {
	sets := []string{
		"image.tag=" + r.GitSHA,
		fmt.Sprintf("replicaCount=%d", cfg.ReplicaCount),
	}
	if cfg.ChartValues == "" {
		return sets, nil
	}

	own := map[string]interface{}{}
	for _, s := range sets {
		if err := strvals.ParseInto(s, own); err != nil {
			return nil, errors.Wrapf(err, "parsing chart value %q", s)
		}
	}
	extra, err := strvals.Parse(cfg.ChartValues)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing chart values %q", cfg.ChartValues)
	}
	if key, ok := overlap(own, extra, ""); ok {
		return nil, fmt.Errorf("chart values %q set %s, which is set for each deployment", cfg.ChartValues, key)
	}
	return append(sets, shellQuote(cfg.ChartValues)), nil
}

// overlap finds a key in b that would replace all or part of a value
// in a.
func overlap(a, b map[string]interface{}, prefix string) (string, bool) {
	for k, bv := range b {
		av, ok := a[k]
		if !ok {
			continue
		}
		am, aIsMap := av.(map[string]interface{})
		bm, bIsMap := bv.(map[string]interface{})
		if aIsMap && bIsMap {
			if key, ok := overlap(am, bm, prefix+k+"."); ok {
				return key, true
			}
			continue
		}
		return prefix + k, true
	}
	return "", false
}

// Tasks are the commands the worker runs, one per line, for a
// request.
func Tasks(cfg config.Config, r Request) ([]string, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	sets, err := values(cfg, r)
	if err != nil {
		return nil, err
	}
	upgrade := []string{
		"helm", "upgrade", cfg.ReleaseName(r.EnvironmentName),
		cfg.ChartPath, "--install",
		"--namespace=" + r.EnvironmentName,
	}
	for _, s := range sets {
		upgrade = append(upgrade, "--set", s)
	}
	return []string{
		"cd " + cfg.SourceDir,
		strings.Join(upgrade, " "),
	}, nil
}

// Script is the shell script the worker container runs. It stops at
// the first failing task.
func Script(tasks []string) string {
	return "set -e\n" + strings.Join(tasks, "\n") + "\n"
}

func checkoutScript(repoURL, dir, sha string) string {
	return Script([]string{
		fmt.Sprintf("git clone %s %s", shellQuote(repoURL), shellQuote(dir)),
		fmt.Sprintf("git -C %s checkout --detach %s", shellQuote(dir), sha),
	})
}

func shellQuote(s string) string {
	return "'" + strings.Replace(s, "'", `'\''`, -1) + "'"
}
