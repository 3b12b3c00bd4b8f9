// SPDX-License-Identifier: MPL-2.0

package collect

import (
	"maps"
	"slices"
	"strings"

	"github.com/strata-dev/strata/pkg/types"
)

type (
	// Answers is the run-wide flat index of resolved values keyed <module>_<key>.
	Answers map[string]any

	// Config holds per-module values keyed by config key.
	Config map[types.ModuleID]map[string]any
)

// AnswerKey returns the Answers key for a module config key.
func AnswerKey(module types.ModuleID, key string) string {
	return string(module) + "_" + key
}

// Lookup finds key by suffix. An exact <module>_<key> match wins, then
// core_<key>, then the lexicographically smallest key ending in _<key>.
func (a Answers) Lookup(module types.ModuleID, key string) (any, bool) {
	if v, ok := a[AnswerKey(module, key)]; ok {
		return v, true
	}
	if v, ok := a[AnswerKey("core", key)]; ok {
		return v, true
	}
	suffix := "_" + key
	best := ""
	for k := range a {
		if strings.HasSuffix(k, suffix) && (best == "" || k < best) {
			best = k
		}
	}
	if best == "" {
		return nil, false
	}
	return a[best], true
}

// Publish records every value of a module under <module>_<key>.
func (a Answers) Publish(module types.ModuleID, values map[string]any) {
	for k, v := range values {
		a[AnswerKey(module, k)] = v
	}
}

// Modules returns the module ids in c, sorted.
func (c Config) Modules() []types.ModuleID {
	return slices.Sorted(maps.Keys(c))
}

// FormatValue renders a config value the way it is spliced into templates.
// Lists are joined with ", ".
func FormatValue(v any) string { return stringify(v) }
