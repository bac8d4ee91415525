// Package router classifies each user turn into one of the three handling
// strategies. Greetings are matched by rule before the classification engine
// is ever consulted, so the greeting path is instant and deterministic.
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

type Route string

const (
	RouteDataQuery      Route = "DATA_QUERY"
	RouteDocumentQuery  Route = "DOCUMENT_QUERY"
	RouteConversational Route = "CONVERSATIONAL"
	RouteUnknown        Route = "UNKNOWN"
)

// DefaultGreetings matches the phrase set the conversational shortcut has
// always used. Entries match on equality or prefix after normalization.
var DefaultGreetings = []string{
	"hi",
	"hello",
	"hey",
	"hey there",
	"good morning",
	"good afternoon",
	"good evening",
	"how are you",
	"hii",
	"hiiii",
	"yo",
	"sup",
	"namaste",
}

const classifyPromptTemplate = `You are the intent router inside a hospital chatbot system.
Your only job is to read the conversation below and decide which ROUTE label
describes the current question:

- DATA_QUERY      -> questions about structured hospital DATABASE records:
  patients, doctors, staff, appointments, diseases, diagnoses, treatments,
  medicines, prescriptions, billing, diagnostic reports.
- DOCUMENT_QUERY  -> questions about internal policy documents: human rights,
  board diversity, archival rules, anti-bribery, risk management, POSH.
- CONVERSATIONAL  -> everything else: greetings, small talk, general medical
  knowledge, personal health advice, unrelated topics.

You MUST NOT answer the question yourself.

%s

OUTPUT FORMAT (STRICT):
Respond with EXACTLY ONE of the following labels and nothing else:
DATA_QUERY
DOCUMENT_QUERY
CONVERSATIONAL`

type Router struct {
	llm       llms.Model
	greetings []string
	timeout   time.Duration
}

func New(llm llms.Model, greetings []string, timeout time.Duration) *Router {
	if len(greetings) == 0 {
		greetings = DefaultGreetings
	}
	return &Router{llm: llm, greetings: greetings, timeout: timeout}
}

// IsGreeting reports whether the raw message matches the greeting phrase set
// exactly or by prefix. This bypass is authoritative: once it fires the
// classification engine is never consulted for the turn.
func (r *Router) IsGreeting(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return false
	}
	for _, g := range r.greetings {
		if msg == g || strings.HasPrefix(msg, g) {
			return true
		}
	}
	return false
}

// Route classifies one turn. The message is the raw user text (for the
// greeting bypass); augmented is the history-and-context enriched question
// handed to the classification engine.
func (r *Router) Route(ctx context.Context, message, augmented string) (Route, error) {
	if r.IsGreeting(message) {
		return RouteConversational, nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(classifyPromptTemplate, augmented)
	out, err := llms.GenerateFromSinglePrompt(ctx, r.llm, prompt, llms.WithTemperature(0))
	if err != nil {
		return RouteUnknown, fmt.Errorf("classification engine failed: %w", err)
	}

	return ParseLabel(out), nil
}

// ParseLabel maps raw engine output onto a route. Anything that names
// neither data nor document routes falls back to CONVERSATIONAL: an
// ambiguous classification must never trigger a database round trip.
func ParseLabel(output string) Route {
	label := strings.ToUpper(strings.TrimSpace(output))
	switch {
	case strings.Contains(label, string(RouteDataQuery)):
		return RouteDataQuery
	case strings.Contains(label, string(RouteDocumentQuery)):
		return RouteDocumentQuery
	default:
		return RouteConversational
	}
}
