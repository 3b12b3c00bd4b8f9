// SPDX-License-Identifier: MPL-2.0

package collect

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/strata-dev/strata/pkg/moduledef"
)

const (
	// ProjectRootToken is replaced with the project directory when config is written.
	ProjectRootToken = "{project-root}"
	// ValueToken is replaced with the answer when a result template is applied.
	ValueToken = "{value}"
)

var placeholderRE = regexp.MustCompile(`\{([A-Za-z0-9_-]+)\}`)

// scope resolves placeholders for one module.
type scope struct {
	c       *Collector
	def     *moduledef.Module
	current map[string]any
	// visiting holds keys whose schema default is being resolved.
	visiting map[string]bool
	// cyclic holds keys whose default kept its raw text because of a cycle.
	// They never resolve as placeholders.
	cyclic   map[string]bool
	cycleHit bool
}

func newScope(c *Collector, def *moduledef.Module, current map[string]any) *scope {
	return &scope{c: c, def: def, current: current, visiting: make(map[string]bool), cyclic: make(map[string]bool)}
}

func isReserved(key string) bool {
	return key == "project-root" || key == "value"
}

// resolve substitutes every non-reserved placeholder in s that can be
// resolved. Unresolved placeholders are left verbatim. Values spliced into
// defaults lose a leading {project-root}/ so a result template can add it back.
func (s *scope) resolve(str string, forDefault bool) string {
	return placeholderRE.ReplaceAllStringFunc(str, func(m string) string {
		key := m[1 : len(m)-1]
		if isReserved(key) {
			return m
		}
		v, ok := s.lookup(key)
		if !ok {
			slog.Debug("unresolved placeholder", "module", s.def.Code, "placeholder", m)
			return m
		}
		out := stringify(v)
		if forDefault {
			out = strings.TrimPrefix(out, ProjectRootToken+"/")
		}
		return out
	})
}

func (s *scope) lookup(key string) (any, bool) {
	if s.cyclic[key] {
		s.cycleHit = true
		return nil, false
	}
	if v, ok := s.current[key]; ok {
		return v, true
	}
	if v, ok := s.c.answers.Lookup(s.def.Code, key); ok {
		return v, true
	}
	for _, id := range s.c.final.Modules() {
		if v, ok := s.c.final[id][key]; ok {
			return v, true
		}
	}
	item, ok := s.def.Item(key)
	if !ok || !item.HasDefault {
		return nil, false
	}
	if s.visiting[key] {
		s.cycleHit = true
		return nil, false
	}
	return s.typedDefault(item), true
}

// typedDefault resolves item's schema default into the value shape of its
// kind. When the resolution runs into a cycle the outermost item keeps its
// default as written.
func (s *scope) typedDefault(item *moduledef.ConfigItem) any {
	outermost := len(s.visiting) == 0
	if outermost {
		s.cycleHit = false
	}
	s.visiting[item.Key] = true
	v := s.expandDefault(item)
	delete(s.visiting, item.Key)

	if outermost && s.cycleHit {
		slog.Warn("placeholder cycle in config defaults, keeping the default unresolved", "module", s.def.Code, "key", item.Key)
		s.cycleHit = false
		s.cyclic[item.Key] = true
		return rawDefault(item)
	}
	return v
}

func (s *scope) expandDefault(item *moduledef.ConfigItem) any {
	switch item.Kind {
	case moduledef.KindBoolean:
		b, _ := item.Default.(bool)
		return b
	case moduledef.KindMultiChoice:
		var out []string
		switch d := item.Default.(type) {
		case nil:
		case []any:
			for _, e := range d {
				out = append(out, s.resolve(stringify(e), true))
			}
		default:
			out = []string{s.resolve(stringify(d), true)}
		}
		return out
	default:
		if item.Default == nil {
			return ""
		}
		return s.resolve(stringify(item.Default), true)
	}
}

// rawDefault is item's default in the value shape of its kind, with its
// placeholders left as written.
func rawDefault(item *moduledef.ConfigItem) any {
	switch item.Kind {
	case moduledef.KindBoolean:
		b, _ := item.Default.(bool)
		return b
	case moduledef.KindMultiChoice:
		var out []string
		switch d := item.Default.(type) {
		case nil:
		case []any:
			for _, e := range d {
				out = append(out, stringify(e))
			}
		default:
			out = []string{stringify(d)}
		}
		return out
	default:
		return stringify(item.Default)
	}
}

// applyResult turns a typed answer into the stored value.
func (s *scope) applyResult(item *moduledef.ConfigItem, value any) any {
	if !item.HasResult || item.Result == ValueToken {
		return value
	}
	if list, ok := value.([]string); ok {
		out := make([]string, len(list))
		for i, e := range list {
			out[i] = s.resolve(strings.ReplaceAll(item.Result, ValueToken, e), false)
		}
		return out
	}
	return s.resolve(strings.ReplaceAll(item.Result, ValueToken, stringify(value)), false)
}

// stringify renders a config value for splicing into a string.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}
