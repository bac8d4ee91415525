package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"medichat-backend/internal/chat"
	"medichat-backend/internal/database"
	"medichat-backend/pkg/api"
)

type ChatService struct {
	db        *gorm.DB
	assistant *chat.Assistant
}

func NewChatService(db *gorm.DB, assistant *chat.Assistant) *ChatService {
	return &ChatService{db: db, assistant: assistant}
}

func (s *ChatService) AddRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Post("/", RestHandler(s.SendMessage))
		r.Get("/{chat_id}/history", RestHandler(s.GetChatHistory))
	})
	r.Get("/history", RestHandler(s.GetUserHistory))
	r.Get("/health", RestHandler(s.Health))
}

func (s *ChatService) SendMessage(r *http.Request) (any, error) {
	req, err := ParseRequest[api.ChatRequest](r)
	if err != nil {
		return nil, err
	}

	reply := s.assistant.Respond(r.Context(), chat.Turn{
		ChatID:   req.ChatID,
		Message:  req.Message,
		Username: req.Username,
		Email:    req.Email,
	})

	data := reply.Data
	if data == nil {
		data = []api.Table{}
	}

	return api.ChatResponse{
		ChatID: reply.ChatID,
		Result: reply.Result,
		Data:   data,
		Route:  string(reply.Route),
	}, nil
}

func (s *ChatService) GetChatHistory(r *http.Request) (any, error) {
	chatID, err := URLParam(r, "chat_id")
	if err != nil {
		return nil, err
	}

	records, err := database.GetChatAuditHistory(r.Context(), s.db, chatID)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error loading chat history: %v", err)
	}

	return api.ChatHistoryResponse{Messages: toHistoryItems(records)}, nil
}

func (s *ChatService) GetUserHistory(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[api.HistoryQuery](r)
	if err != nil {
		return nil, err
	}

	records, err := database.GetUserAuditHistory(r.Context(), s.db, query.Email)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error loading user history: %v", err)
	}

	return api.ChatHistoryResponse{Messages: toHistoryItems(records)}, nil
}

func (s *ChatService) Health(r *http.Request) (any, error) {
	return map[string]string{"status": "ok"}, nil
}

func toHistoryItems(records []database.AuditRecord) []api.ChatHistoryItem {
	items := make([]api.ChatHistoryItem, 0, len(records))
	for _, rec := range records {
		items = append(items, api.ChatHistoryItem{
			ChatID:    rec.ChatID,
			Sender:    rec.Sender,
			Message:   rec.Message,
			Route:     rec.Route,
			Timestamp: rec.Timestamp.Format("2006-01-02 15:04:05"),
			Username:  rec.Username,
		})
	}
	return items
}
