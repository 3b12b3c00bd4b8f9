// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/strata-dev/strata/pkg/collect"
	"github.com/strata-dev/strata/pkg/moduledef"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("prompt aborted")

type (
	// Prompter asks each module's questions as one huh form.
	Prompter struct {
		cfg Config
	}

	// binding holds the value a field writes into, typed by question kind.
	binding struct {
		q        *collect.Question
		text     string
		boolean  bool
		multiple []string
	}
)

// NewPrompter creates a Prompter.
func NewPrompter(cfg Config) *Prompter {
	return &Prompter{cfg: cfg}
}

// Ask implements collect.Prompter.
func (p *Prompter) Ask(ctx context.Context, module *moduledef.Module, questions []collect.Question) (map[string]any, error) {
	if len(questions) == 0 {
		return map[string]any{}, nil
	}
	form, bindings := p.form(module, questions)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, fmt.Errorf("%s: %w", module.Code, ErrAborted)
		}
		return nil, err
	}
	return answers(bindings), nil
}

func (p *Prompter) form(module *moduledef.Module, questions []collect.Question) (*huh.Form, []*binding) {
	bindings := make([]*binding, len(questions))
	fields := make([]huh.Field, 0, len(questions)+1)
	fields = append(fields, huh.NewNote().Title(moduleTitle(module)).Description(module.Description))
	for i := range questions {
		b := newBinding(&questions[i])
		bindings[i] = b
		fields = append(fields, b.field())
	}

	form := huh.NewForm(huh.NewGroup(fields...)).
		WithTheme(huhTheme(p.cfg.Theme)).
		WithAccessible(p.cfg.Accessible).
		WithShowHelp(!p.cfg.Accessible)
	if p.cfg.Input != nil {
		form = form.WithInput(p.cfg.Input)
	}
	if p.cfg.Output != nil {
		form = form.WithOutput(p.cfg.Output)
	}
	return form, bindings
}

func moduleTitle(module *moduledef.Module) string {
	name := module.Name
	if name == "" {
		name = string(module.Code)
	}
	if module.Version == "" {
		return name
	}
	return name + " " + module.Version
}

func newBinding(q *collect.Question) *binding {
	b := &binding{q: q}
	switch q.Kind {
	case moduledef.KindBoolean:
		b.boolean, _ = q.Default.(bool)
	case moduledef.KindMultiChoice:
		b.multiple = defaultStrings(q.Default)
	default:
		b.text = q.DefaultString()
	}
	return b
}

func (b *binding) field() huh.Field {
	q := b.q
	switch q.Kind {
	case moduledef.KindBoolean:
		return huh.NewConfirm().
			Title(q.Prompt).
			Description(q.Description).
			Affirmative("Yes").
			Negative("No").
			Value(&b.boolean)
	case moduledef.KindSingleChoice:
		return huh.NewSelect[string]().
			Title(q.Prompt).
			Description(q.Description).
			Options(options(q.Choices)...).
			Value(&b.text)
	case moduledef.KindMultiChoice:
		ms := huh.NewMultiSelect[string]().
			Title(q.Prompt).
			Description(q.Description).
			Options(options(q.Choices)...).
			Value(&b.multiple)
		if q.Required {
			ms = ms.Validate(func(v []string) error {
				if len(v) == 0 {
					return fmt.Errorf("%s: %w", q.Key, collect.ErrRequired)
				}
				return nil
			})
		}
		return ms
	default:
		return huh.NewInput().
			Key(q.Key).
			Title(q.Prompt).
			Description(q.Description).
			Placeholder(q.DefaultString()).
			Value(&b.text).
			Validate(q.Validate)
	}
}

func (b *binding) value() any {
	switch b.q.Kind {
	case moduledef.KindBoolean:
		return b.boolean
	case moduledef.KindMultiChoice:
		return b.multiple
	default:
		return b.text
	}
}

func answers(bindings []*binding) map[string]any {
	out := make(map[string]any, len(bindings))
	for _, b := range bindings {
		out[b.q.Key] = b.value()
	}
	return out
}

func options(choices []moduledef.Choice) []huh.Option[string] {
	opts := make([]huh.Option[string], len(choices))
	for i, c := range choices {
		label := c.Label
		if label == "" {
			label = c.Value
		}
		opts[i] = huh.NewOption(label, c.Value)
	}
	return opts
}

func defaultStrings(v any) []string {
	switch d := v.(type) {
	case []string:
		return append([]string(nil), d...)
	case []any:
		out := make([]string, 0, len(d))
		for _, e := range d {
			out = append(out, collect.FormatValue(e))
		}
		return out
	case nil:
		return nil
	default:
		return []string{collect.FormatValue(d)}
	}
}
