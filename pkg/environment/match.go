package environment

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

// Descriptor is one preview environment, as registered in the config
// store. The document maps project names to the release each project
// should be running in the environment, e.g.,
//
//     gateway:
//       tag: v1.2.3
type Descriptor struct {
	ConfigMap       string
	EnvironmentName string
	Document        string
}

// Match is an environment that tracks the tag being released.
type Match struct {
	EnvironmentName string
	ConfigMap       string
}

// MatchParseError means a descriptor could not be interpreted. It is
// not the same as "no match": a corrupt descriptor needs fixing.
type MatchParseError struct {
	ConfigMap string
	Err       error
}

func (e *MatchParseError) Error() string {
	return fmt.Sprintf("parsing environment configmap %q: %s", e.ConfigMap, e.Err)
}

// Tracks says whether the descriptor's entry for project is the tag
// given. Entries for other projects are not looked at. Tags are
// compared as plain strings, and only a tag written as a YAML string
// can match: `tag: 1.10` is the number 1.1, not the tag "1.10".
func (d Descriptor) Tracks(project, tag string) (Match, bool, error) {
	var projects map[string]interface{}
	if err := yaml.Unmarshal([]byte(d.Document), &projects); err != nil {
		return Match{}, false, &MatchParseError{ConfigMap: d.ConfigMap, Err: err}
	}
	entry, ok := projects[project]
	if !ok || entry == nil {
		return Match{}, false, nil
	}
	fields, ok := entry.(map[interface{}]interface{})
	if !ok {
		return Match{}, false, &MatchParseError{
			ConfigMap: d.ConfigMap,
			Err:       fmt.Errorf("entry for %s is not a mapping: %v", project, entry),
		}
	}
	if tracked, isString := fields["tag"].(string); !isString || tracked != tag {
		return Match{}, false, nil
	}
	if d.EnvironmentName == "" {
		return Match{}, false, &MatchParseError{
			ConfigMap: d.ConfigMap,
			Err:       fmt.Errorf("tracks %s %s but has no environment name label", project, tag),
		}
	}
	return Match{EnvironmentName: d.EnvironmentName, ConfigMap: d.ConfigMap}, true, nil
}

// Matches picks out, in order, the descriptors that track tag for
// project. It stops at the first descriptor that can't be parsed.
func Matches(descriptors []Descriptor, project, tag string) ([]Match, error) {
	var matches []Match
	for _, d := range descriptors {
		m, ok, err := d.Tracks(project, tag)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, m)
		}
	}
	return matches, nil
}
