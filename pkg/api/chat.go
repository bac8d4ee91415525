package api

type ChatRequest struct {
	Message  string `json:"message"`
	ChatID   string `json:"chat_id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Table is one materialized result set. Cell values are pre-stringified so
// the UI can render them without caring about column types.
type Table struct {
	Columns []string   `json:"columns"`
	Values  [][]string `json:"values"`
}

type ChatResponse struct {
	ChatID string  `json:"chat_id"`
	Result string  `json:"result"`
	Data   []Table `json:"data"`
	Route  string  `json:"route"`
}

type ChatHistoryItem struct {
	ChatID    string `json:"chat_id"`
	Sender    string `json:"sender"` // "user", "bot", or "search"
	Message   string `json:"message"`
	Route     string `json:"route"`
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
}

type ChatHistoryResponse struct {
	Messages []ChatHistoryItem `json:"messages"`
}

type HistoryQuery struct {
	Email string `schema:"email,required"`
}
