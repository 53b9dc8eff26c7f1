package stdlib

import "context"

// Host is the trio of I/O callbacks a script's `say`/`warn`/`ask`
// resolve to (§6 "three optional async callbacks say/warn/ask(context,
// text) -> value"). A nil method on an otherwise-present Host is
// treated as "not installed" by Register, matching DeclareNative's
// installed flag so `isnative("say")` reports truthfully.
type Host interface {
	// Say writes a line of normal program output.
	Say(ctx context.Context, text string) error
	// Warn writes a line of diagnostic output.
	Warn(ctx context.Context, text string) error
	// Ask prompts for and returns a line of input.
	Ask(ctx context.Context, prompt string) (string, error)
}
