// Package text2sql drives the natural-language-to-SQL backend: it runs the
// translation engine, salvages answers from malformed engine output, rebuilds
// result tables from read-only statements, and infers entity context for
// follow-up questions.
package text2sql

import (
	"context"
	"fmt"
	"regexp"
)

// Sentinel values stored in place of a generated statement when none is
// available. They are surfaced to the caller and persisted in the
// conversation context as-is.
const (
	QueryUnavailable      = "No SQL was executed for this question."
	QueryUnavailableParse = "SQL unavailable due to output parsing error."
)

// Translation is the successful outcome of one translation round trip.
type Translation struct {
	Answer string
	Query  string // empty when the engine produced no statement
}

// Translator is the external NL-to-SQL engine contract. Implementations must
// inspect real schema metadata before emitting statements; that constraint
// lives in the engine configuration, not here.
//
// Errors come in two classes: *ParseError when the engine answered but its
// output could not be parsed, and anything else as a hard failure.
type Translator interface {
	Translate(ctx context.Context, question string) (Translation, error)
}

// ParseError reports engine output that did not match the expected format.
// The raw output is embedded in the message between backticks so callers can
// salvage it.
type ParseError struct {
	Output string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse engine output: `%s`", e.Output)
}

var backtickSpanRe = regexp.MustCompile("`([^`]+)`")

// SalvageAnswer scans an error payload for a backtick-delimited span and
// returns it verbatim. The second return is false when no span is present
// and the error must propagate as a hard failure.
func SalvageAnswer(errText string) (string, bool) {
	m := backtickSpanRe.FindStringSubmatch(errText)
	if m == nil {
		return "", false
	}
	return m[1], true
}
