package chat

import (
	"fmt"
	"strings"

	"medichat-backend/internal/database"
)

// Augment builds the engine-facing question: recent turns, the last
// structured-query context if any, then the current question. The raw
// user text stays untouched for the greeting bypass; only engine
// prompts see this enriched form.
func Augment(question string, turns []database.ConversationTurn, cctx *database.ConversationContext) string {
	var b strings.Builder

	if len(turns) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range turns {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}

	if cctx != nil && cctx.LastEntityType.Valid {
		b.WriteString("Last database context:\n")
		fmt.Fprintf(&b, "- entity type: %s\n", cctx.LastEntityType.String)
		if cctx.LastEntityIDsCSV != "" {
			fmt.Fprintf(&b, "- entity ids: %s\n", cctx.LastEntityIDsCSV)
		}
		if cctx.LastQueryText != "" {
			fmt.Fprintf(&b, "- previous query: %s\n", cctx.LastQueryText)
		}
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return question
	}

	fmt.Fprintf(&b, "Current question: %s", question)
	return b.String()
}
