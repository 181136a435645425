package jira

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/rushi-auxo/fivetran-mcp/internal/result"
)

// NoMatchError is returned when a status name matches none of the legal
// transitions. Available lists the names that would have matched.
type NoMatchError struct {
	Status      string
	Available   []string
	Suggestions []string
}

func (e *NoMatchError) Error() string {
	if len(e.Available) == 0 {
		return "No transitions available for this issue."
	}
	msg := fmt.Sprintf("Status '%s' not found. Available: [%s]", e.Status, strings.Join(e.Available, ", "))
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(". Did you mean: %s?", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *NoMatchError) Kind() result.Kind { return result.KindNoMatch }

func (e *NoMatchError) Options() []string { return e.Available }

// Match returns the transition whose name equals status case-insensitively.
func Match(transitions []Transition, status string) (Transition, error) {
	if len(transitions) == 0 {
		return Transition{}, &NoMatchError{Status: status}
	}

	names := make([]string, 0, len(transitions))
	for _, t := range transitions {
		if strings.EqualFold(t.Name, status) {
			return t, nil
		}
		names = append(names, t.Name)
	}
	return Transition{}, &NoMatchError{
		Status:      status,
		Available:   names,
		Suggestions: suggest(status, names),
	}
}

// suggest ranks names that fuzzily contain status, closest first.
func suggest(status string, names []string) []string {
	if status == "" {
		return nil
	}
	ranks := fuzzy.RankFindFold(status, names)
	sort.Sort(ranks)
	out := make([]string, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, r.Target)
	}
	return out
}
