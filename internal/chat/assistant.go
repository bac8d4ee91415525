package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"medichat-backend/internal/database"
	"medichat-backend/internal/messaging"
	"medichat-backend/internal/router"
	"medichat-backend/internal/sanitize"
	"medichat-backend/internal/text2sql"
	"medichat-backend/pkg/api"
)

// User-facing texts for the failure paths. Engine and database errors
// never leak to the client verbatim.
const (
	EmptyQuestionReply = "Please enter a non-empty question."
	DataErrorReply     = "Sorry, there was an error while querying the hospital database. Please try again."
	DocumentErrorReply = "Sorry, there was an error while looking up the policy documents. Please try again."
	GenericErrorReply  = "Sorry, something went wrong while processing your request. Please try again in a moment."
)

// Classifier picks the route for a turn. The greeting bypass lives
// inside Route: it fires on the raw message before any engine call.
type Classifier interface {
	Route(ctx context.Context, message, augmented string) (router.Route, error)
}

type DataAnswerer interface {
	Answer(ctx context.Context, question string) (text2sql.Answer, error)
}

type DocumentAnswerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

type SmallTalker interface {
	Reply(ctx context.Context, question string) (string, error)
}

// Turn is one incoming user message.
type Turn struct {
	ChatID   string
	Message  string
	Username string
	Email    string
}

// Reply is what the client gets back for a turn.
type Reply struct {
	ChatID string
	Result string
	Data   []api.Table
	Route  router.Route
}

// Assistant routes each turn to one of the three answer paths and owns
// all conversation persistence.
type Assistant struct {
	db            *gorm.DB
	classifier    Classifier
	data          DataAnswerer
	docs          DocumentAnswerer
	talk          SmallTalker
	events        messaging.Publisher
	historyWindow int
}

func NewAssistant(db *gorm.DB, classifier Classifier, data DataAnswerer, docs DocumentAnswerer, talk SmallTalker, events messaging.Publisher, historyWindow int) *Assistant {
	if historyWindow <= 0 {
		historyWindow = 6
	}
	return &Assistant{
		db:            db,
		classifier:    classifier,
		data:          data,
		docs:          docs,
		talk:          talk,
		events:        events,
		historyWindow: historyWindow,
	}
}

// Respond handles one turn end to end. It never returns an error: every
// failure path resolves to a user-facing reply, and persistence problems
// are logged without affecting the response.
func (a *Assistant) Respond(ctx context.Context, turn Turn) Reply {
	chatID := turn.ChatID
	if chatID == "" {
		chatID = uuid.New().String()
	}

	message := strings.TrimSpace(turn.Message)
	if message == "" {
		reply := Reply{ChatID: chatID, Result: EmptyQuestionReply, Route: router.RouteConversational}
		a.persistTurn(ctx, turn, chatID, message, reply)
		return reply
	}

	augmented := a.augmentedQuestion(ctx, chatID, message)

	route, err := a.classifier.Route(ctx, message, augmented)
	if err != nil {
		// An unreachable classification engine must not take the whole
		// chat down; the conversational path is the safe route.
		slog.Error("routing failed, falling back to conversational", "chat_id", chatID, "error", err)
		route = router.RouteConversational
	}

	reply := Reply{ChatID: chatID, Route: route}

	switch route {
	case router.RouteDataQuery:
		ans, err := a.data.Answer(ctx, augmented)
		if err != nil {
			slog.Error("database question failed", "chat_id", chatID, "error", err)
			reply.Result = DataErrorReply
			break
		}
		reply.Result = sanitize.Clean(ans.Result.Answer)
		if ans.Table != nil {
			reply.Data = []api.Table{*ans.Table}
		}
		a.updateContext(ctx, chatID, ans)

	case router.RouteDocumentQuery:
		// Document answers are prose from the retrieval engine and are
		// passed through verbatim; the sanitizer is for query answers.
		answer, err := a.docs.Answer(ctx, augmented)
		if err != nil {
			slog.Error("document question failed", "chat_id", chatID, "error", err)
			reply.Result = DocumentErrorReply
			break
		}
		reply.Result = answer

	default:
		reply.Route = router.RouteConversational
		answer, err := a.talk.Reply(ctx, augmented)
		if err != nil {
			slog.Error("conversational reply failed", "chat_id", chatID, "error", err)
			reply.Result = GenericErrorReply
			break
		}
		reply.Result = answer
	}

	a.persistTurn(ctx, turn, chatID, message, reply)

	return reply
}

// augmentedQuestion replays recent turns and the last structured-query
// context into the question. Failures degrade to the bare question.
func (a *Assistant) augmentedQuestion(ctx context.Context, chatID, message string) string {
	turns, err := database.RecentTurns(ctx, a.db, chatID, a.historyWindow)
	if err != nil {
		slog.Error("could not load conversation history", "chat_id", chatID, "error", err)
		turns = nil
	}

	cctx, err := database.GetContext(ctx, a.db, chatID)
	if err != nil {
		slog.Error("could not load conversation context", "chat_id", chatID, "error", err)
		cctx = nil
	}

	return Augment(message, turns, cctx)
}

// updateContext overwrites the single context row for the chat after a
// structured-query turn. Answers that touched no tracked entity still
// record the query text so follow-ups can reference it.
func (a *Assistant) updateContext(ctx context.Context, chatID string, ans text2sql.Answer) {
	cctx := &database.ConversationContext{
		ChatID:        chatID,
		LastQueryText: ans.Result.Query,
	}
	if ans.EntityType != "" {
		cctx.LastEntityType = sql.NullString{String: ans.EntityType, Valid: true}
	}
	if len(ans.EntityIDs) > 0 {
		ids := make([]string, len(ans.EntityIDs))
		for i, id := range ans.EntityIDs {
			ids[i] = strconv.Itoa(id)
		}
		cctx.LastEntityIDsCSV = strings.Join(ids, ",")
	}

	if err := database.UpsertContext(ctx, a.db, cctx); err != nil {
		slog.Error("could not update conversation context", "chat_id", chatID, "error", err)
	}
}

// persistTurn writes the turn log, audit trail, and chat events. All of
// it is best effort; the reply has already been computed.
func (a *Assistant) persistTurn(ctx context.Context, turn Turn, chatID, message string, reply Reply) {
	now := time.Now().UTC()

	metadata, err := json.Marshal(map[string]string{"route": string(reply.Route)})
	if err != nil {
		metadata = nil
	}

	if err := database.SaveTurn(ctx, a.db, &database.ConversationTurn{
		ChatID:   chatID,
		Role:     database.RoleUser,
		Content:  message,
		Metadata: datatypes.JSON(metadata),
	}); err != nil {
		slog.Error("could not save user turn", "chat_id", chatID, "error", err)
	}

	if err := database.SaveTurn(ctx, a.db, &database.ConversationTurn{
		ChatID:   chatID,
		Role:     database.RoleAssistant,
		Content:  reply.Result,
		Metadata: datatypes.JSON(metadata),
	}); err != nil {
		slog.Error("could not save assistant turn", "chat_id", chatID, "error", err)
	}

	botSender := database.SenderBot
	if reply.Route == router.RouteDocumentQuery {
		botSender = database.SenderSearch
	}

	records := []database.AuditRecord{
		{
			ChatID:    chatID,
			UserEmail: turn.Email,
			Sender:    database.SenderUser,
			Message:   message,
			Route:     string(reply.Route),
			Timestamp: now,
			Username:  turn.Username,
		},
		{
			ChatID:    chatID,
			UserEmail: turn.Email,
			Sender:    botSender,
			Message:   reply.Result,
			Route:     string(reply.Route),
			Timestamp: now,
			Username:  turn.Username,
		},
	}

	for i := range records {
		database.SaveAuditRecord(ctx, a.db, &records[i])
		a.publishEvent(ctx, records[i])
	}
}

func (a *Assistant) publishEvent(ctx context.Context, rec database.AuditRecord) {
	if a.events == nil {
		return
	}
	err := a.events.PublishChatEvent(ctx, messaging.ChatEventPayload{
		ChatID:    rec.ChatID,
		UserEmail: rec.UserEmail,
		Sender:    rec.Sender,
		Message:   rec.Message,
		Route:     rec.Route,
		Timestamp: rec.Timestamp,
	})
	if err != nil {
		slog.Error("could not publish chat event", "chat_id", rec.ChatID, "error", err)
	}
}
