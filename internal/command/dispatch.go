// Package command maps recognized speech transcripts to navigation actions.
// The browser owns the microphone; this side only interprets final
// transcripts it is handed.
package command

import "strings"

// Action is a zero-argument command bound to an exact phrase.
type Action func()

// PrefixAction receives the remainder of the utterance after its keyword.
type PrefixAction func(arg string)

// PrefixRule binds a leading keyword to an action taking the rest of the
// utterance as a free-form argument.
type PrefixRule struct {
	Prefix string
	Action PrefixAction
}

// Dispatcher resolves one utterance to at most one action. Exact phrases are
// checked before prefix rules; the first matching rule wins; an utterance
// matching nothing is a no-op. Reserved stop phrases always end the
// listening session, regardless of anything else they might match.
type Dispatcher struct {
	exact    map[string]Action
	prefixes []PrefixRule
	stop     []string
	onStop   Action
}

// New creates an empty dispatcher with the given stop handler. The reserved
// phrases default to "stop listening" and "cancel".
func New(onStop Action) *Dispatcher {
	return &Dispatcher{
		exact:  make(map[string]Action),
		stop:   []string{"stop listening", "cancel"},
		onStop: onStop,
	}
}

// Handle binds an exact lower-cased phrase to an action.
func (d *Dispatcher) Handle(phrase string, action Action) {
	d.exact[strings.ToLower(phrase)] = action
}

// HandlePrefix appends a prefix rule. Rules are tried in registration order.
func (d *Dispatcher) HandlePrefix(prefix string, action PrefixAction) {
	d.prefixes = append(d.prefixes, PrefixRule{Prefix: strings.ToLower(prefix), Action: action})
}

// Result reports how an utterance was resolved.
type Result struct {
	// Handled is true when any rule (or a stop phrase) fired.
	Handled bool
	// Stopped is true when a reserved phrase ended the listening session.
	Stopped bool
	// Matched is the phrase or prefix that fired, for logging.
	Matched string
	// Arg is the captured remainder for prefix rules.
	Arg string
}

// Dispatch resolves a final transcript. Matching is case-insensitive over
// the trimmed utterance.
func (d *Dispatcher) Dispatch(utterance string) Result {
	phrase := strings.ToLower(strings.TrimSpace(utterance))
	if phrase == "" {
		return Result{}
	}

	for _, stop := range d.stop {
		if phrase == stop || strings.Contains(phrase, stop) {
			if d.onStop != nil {
				d.onStop()
			}
			return Result{Handled: true, Stopped: true, Matched: stop}
		}
	}

	if action, ok := d.exact[phrase]; ok {
		action()
		return Result{Handled: true, Matched: phrase}
	}

	for _, rule := range d.prefixes {
		if strings.HasPrefix(phrase, rule.Prefix) {
			arg := strings.TrimSpace(strings.TrimPrefix(phrase, rule.Prefix))
			rule.Action(arg)
			return Result{Handled: true, Matched: rule.Prefix, Arg: arg}
		}
	}

	return Result{}
}
