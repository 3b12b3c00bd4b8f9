// SPDX-License-Identifier: MPL-2.0

package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/strata-dev/strata/pkg/moduledef"
	"github.com/strata-dev/strata/pkg/types"
)

type (
	// Collector resolves module configuration for one install run.
	Collector struct {
		prompter Prompter
		answers  Answers
		existing Config
		final    Config
	}

	// Result is the outcome of collecting one module.
	Result struct {
		Module types.ModuleID
		Values map[string]any
		// Asked lists the keys put to the Prompter, in schema order.
		Asked []string
		// CarriedOver is true when the existing config was reused without asking.
		CarriedOver bool
	}
)

// New creates a Collector. answers and final are shared with the caller and
// filled as modules are collected. existing may be nil on a first install.
func New(prompter Prompter, answers Answers, existing, final Config) *Collector {
	if prompter == nil {
		prompter = Defaults{}
	}
	if existing == nil {
		existing = Config{}
	}
	return &Collector{prompter: prompter, answers: answers, existing: existing, final: final}
}

// Final returns the finalized values of a collected module.
func (c *Collector) Final(id types.ModuleID) (map[string]any, bool) {
	v, ok := c.final[id]
	return v, ok
}

// CarryOver finalizes a module with its existing config unchanged. It is
// used when a module's schema cannot be read. It reports whether any
// existing config was found.
func (c *Collector) CarryOver(id types.ModuleID) bool {
	existing, ok := c.existing[id]
	values := maps.Clone(existing)
	if values == nil {
		values = map[string]any{}
	}
	c.finalize(id, values)
	return ok
}

// Collect resolves the configuration of def.
func (c *Collector) Collect(ctx context.Context, def *moduledef.Module) (*Result, error) {
	res := &Result{Module: def.Code}
	current := make(map[string]any)

	pending := def.Config
	if existing, ok := c.existing[def.Code]; ok {
		maps.Copy(current, existing)
		pending = nil
		for _, item := range def.Config {
			if _, ok := existing[item.Key]; !ok {
				pending = append(pending, item)
			}
		}
		if len(pending) == 0 {
			res.CarriedOver = true
			res.Values = c.finalize(def.Code, current)
			slog.Debug("config unchanged, carried over", "module", def.Code)
			return res, nil
		}
	}

	sc := newScope(c, def, current)
	var batch []*moduledef.ConfigItem
	for i := range pending {
		item := &pending[i]
		if !item.Prompted() {
			current[item.Key] = sc.applyResult(item, sc.typedDefault(item))
			continue
		}
		batch = append(batch, item)
	}

	if len(batch) > 0 {
		questions := make([]Question, len(batch))
		for i, item := range batch {
			questions[i] = Question{
				Key:         item.Key,
				Kind:        item.Kind,
				Prompt:      item.Prompt,
				Description: item.Description,
				Choices:     item.Choices,
				Default:     sc.typedDefault(item),
				Required:    item.Required,
				Regex:       item.Regex,
			}
		}

		raw, err := c.prompter.Ask(ctx, def, questions)
		if err != nil {
			return nil, fmt.Errorf("failed to collect config for %s: %w", def.Code, err)
		}

		var errs []error
		for i, item := range batch {
			q := &questions[i]
			value, err := normalize(q, raw[q.Key])
			if err != nil {
				errs = append(errs, err)
				continue
			}
			current[item.Key] = sc.applyResult(item, value)
			res.Asked = append(res.Asked, item.Key)
		}
		if err := errors.Join(errs...); err != nil {
			return nil, fmt.Errorf("invalid config for %s: %w", def.Code, err)
		}
	}

	res.Values = c.finalize(def.Code, current)
	return res, nil
}

func (c *Collector) finalize(id types.ModuleID, values map[string]any) map[string]any {
	c.final[id] = values
	c.answers.Publish(id, values)
	return values
}

// normalize coerces a prompter answer to the question's kind, applying the
// default for blank answers and validating the result.
func normalize(q *Question, answer any) (any, error) {
	if answer == nil {
		answer = q.Default
	}

	switch q.Kind {
	case moduledef.KindBoolean:
		switch v := answer.(type) {
		case bool:
			return v, nil
		case string:
			return v == "true" || v == "yes" || v == "y", nil
		default:
			return false, nil
		}
	case moduledef.KindMultiChoice:
		var list []string
		switch v := answer.(type) {
		case []string:
			list = v
		case []any:
			for _, e := range v {
				list = append(list, stringify(e))
			}
		case string:
			if v != "" {
				list = []string{v}
			}
		}
		if q.Required && len(list) == 0 {
			return nil, fmt.Errorf("%s: %w", q.Key, ErrRequired)
		}
		return list, nil
	default:
		s := stringify(answer)
		if s == "" {
			s = q.DefaultString()
		}
		if err := q.Validate(s); err != nil {
			return nil, err
		}
		return s, nil
	}
}
