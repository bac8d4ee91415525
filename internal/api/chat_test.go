package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"medichat-backend/internal/chat"
	"medichat-backend/internal/database"
	"medichat-backend/internal/messaging"
	"medichat-backend/internal/router"
	"medichat-backend/internal/text2sql"
	"medichat-backend/pkg/api"
)

type stubClassifier struct{ route router.Route }

func (s *stubClassifier) Route(ctx context.Context, message, augmented string) (router.Route, error) {
	return s.route, nil
}

type stubData struct{ answer text2sql.Answer }

func (s *stubData) Answer(ctx context.Context, question string) (text2sql.Answer, error) {
	return s.answer, nil
}

type stubDocs struct{ answer string }

func (s *stubDocs) Answer(ctx context.Context, question string) (string, error) {
	return s.answer, nil
}

type stubTalk struct{ reply string }

func (s *stubTalk) Reply(ctx context.Context, question string) (string, error) {
	return s.reply, nil
}

func setupTestServer(t *testing.T, classifier chat.Classifier, data chat.DataAnswerer) (*httptest.Server, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())

	assistant := chat.NewAssistant(db, classifier, data, &stubDocs{}, &stubTalk{reply: "Hello!"}, messaging.NewInMemoryQueue(), 6)

	r := chi.NewRouter()
	NewChatService(db, assistant).AddRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, db
}

func postChat(t *testing.T, server *httptest.Server, req api.ChatRequest) api.ChatResponse {
	body, err := json.Marshal(req)
	require.NoError(t, err)

	res, err := http.Post(server.URL+"/chat", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out api.ChatResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

func TestSendMessageAssignsChatID(t *testing.T) {
	server, _ := setupTestServer(t, &stubClassifier{route: router.RouteConversational}, &stubData{})

	res := postChat(t, server, api.ChatRequest{Message: "hello", Username: "vaibhav", Email: "v@example.com"})
	assert.NotEmpty(t, res.ChatID)
	assert.Equal(t, "Hello!", res.Result)
	assert.Equal(t, string(router.RouteConversational), res.Route)

	// An explicit chat id is kept.
	res = postChat(t, server, api.ChatRequest{ChatID: "chat-42", Message: "hello again"})
	assert.Equal(t, "chat-42", res.ChatID)
}

func TestSendMessageReturnsTable(t *testing.T) {
	data := &stubData{answer: text2sql.Answer{
		Result: text2sql.QueryResult{Answer: "There are 2 patients.", Query: "SELECT patient_id FROM patients"},
		Table:  &api.Table{Columns: []string{"patient_id"}, Values: [][]string{{"1"}, {"2"}}},
	}}
	server, _ := setupTestServer(t, &stubClassifier{route: router.RouteDataQuery}, data)

	res := postChat(t, server, api.ChatRequest{Message: "how many patients?"})
	assert.Equal(t, "There are 2 patients.", res.Result)
	require.Len(t, res.Data, 1)
	assert.Equal(t, []string{"patient_id"}, res.Data[0].Columns)
}

func TestSendMessageBadBody(t *testing.T) {
	server, _ := setupTestServer(t, &stubClassifier{route: router.RouteConversational}, &stubData{})

	res, err := http.Post(server.URL+"/chat", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestChatHistoryEndpoint(t *testing.T) {
	server, _ := setupTestServer(t, &stubClassifier{route: router.RouteConversational}, &stubData{})

	sent := postChat(t, server, api.ChatRequest{Message: "hello", Username: "vaibhav", Email: "v@example.com"})

	res, err := http.Get(server.URL + "/chat/" + sent.ChatID + "/history")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var history api.ChatHistoryResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&history))
	require.Len(t, history.Messages, 2)
	assert.Equal(t, database.SenderUser, history.Messages[0].Sender)
	assert.Equal(t, "hello", history.Messages[0].Message)
	assert.Equal(t, database.SenderBot, history.Messages[1].Sender)
}

func TestUserHistoryEndpoint(t *testing.T) {
	server, _ := setupTestServer(t, &stubClassifier{route: router.RouteConversational}, &stubData{})

	postChat(t, server, api.ChatRequest{Message: "hello", Email: "v@example.com"})
	postChat(t, server, api.ChatRequest{Message: "hello", Email: "other@example.com"})

	res, err := http.Get(server.URL + "/history?email=v@example.com")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var history api.ChatHistoryResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&history))
	assert.Len(t, history.Messages, 2)

	// Missing email is a bad request.
	res, err = http.Get(server.URL + "/history")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := setupTestServer(t, &stubClassifier{route: router.RouteConversational}, &stubData{})

	res, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
