// SPDX-License-Identifier: MPL-2.0

package collect

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/strata-dev/strata/pkg/moduledef"
)

var (
	// ErrRequired is returned when a required item is left blank.
	ErrRequired = errors.New("a value is required")

	// ErrPattern is returned when a text answer does not match the item's regex.
	ErrPattern = errors.New("value does not match the required pattern")
)

type (
	// Question is a prompted config item with its default already resolved.
	Question struct {
		Key         string
		Kind        moduledef.ConfigItemKind
		Prompt      string
		Description string
		Choices     []moduledef.Choice
		// Default is a string, a bool (Boolean) or a []string (MultiChoice).
		Default  any
		Required bool
		Regex    *regexp.Regexp
	}

	// Prompter asks one module's question batch in a single interaction and
	// returns answers keyed by Question.Key. Answers are string, bool or
	// []string according to the question kind. Missing keys take the default.
	Prompter interface {
		Ask(ctx context.Context, module *moduledef.Module, questions []Question) (map[string]any, error)
	}

	// Defaults is a Prompter that accepts every default without interaction.
	Defaults struct{}
)

// Ask implements Prompter.
func (Defaults) Ask(_ context.Context, _ *moduledef.Module, questions []Question) (map[string]any, error) {
	out := make(map[string]any, len(questions))
	for _, q := range questions {
		out[q.Key] = q.Default
	}
	return out, nil
}

// Validate checks a text answer against the question's constraints.
func (q *Question) Validate(answer string) error {
	if strings.TrimSpace(answer) == "" {
		if q.Required {
			return fmt.Errorf("%s: %w", q.Key, ErrRequired)
		}
		return nil
	}
	if q.Regex != nil && q.Kind == moduledef.KindText && !q.Regex.MatchString(answer) {
		return fmt.Errorf("%s: %w %s", q.Key, ErrPattern, q.Regex)
	}
	return nil
}

// DefaultString renders the default for text input.
func (q *Question) DefaultString() string {
	return stringify(q.Default)
}
