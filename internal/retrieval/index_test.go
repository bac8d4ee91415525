package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"

	"medichat-backend/internal/storage"
)

type fakeChain struct {
	response string
	err      error
	calls    int
}

func (f *fakeChain) answer(ctx context.Context, question string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestAnswerUsesChain(t *testing.T) {
	chain := &fakeChain{response: "Visiting hours are 9am to 5pm."}
	idx := &Index{build: func(ctx context.Context) (answerer, error) { return chain, nil }}

	got, err := idx.Answer(context.Background(), "When are visiting hours?")
	require.NoError(t, err)
	assert.Equal(t, "Visiting hours are 9am to 5pm.", got)
	assert.True(t, idx.Ready())
}

func TestFailedBuildDegradesPermanently(t *testing.T) {
	builds := 0
	idx := &Index{build: func(ctx context.Context) (answerer, error) {
		builds++
		return nil, errors.New("pgvector unreachable")
	}}

	for range 3 {
		got, err := idx.Answer(context.Background(), "When are visiting hours?")
		require.NoError(t, err)
		assert.Equal(t, NotInitializedMessage, got)
	}

	// The build must not be retried after the first failure.
	assert.Equal(t, 1, builds)
	assert.False(t, idx.Ready())
}

func TestCancelledFirstRequestDoesNotDegradeBuild(t *testing.T) {
	chain := &fakeChain{response: "Visiting hours are 9am to 5pm."}
	idx := &Index{build: func(ctx context.Context) (answerer, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return chain, nil
	}}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	// The build runs detached from the triggering request's context.
	got, err := idx.Answer(cancelled, "When are visiting hours?")
	require.NoError(t, err)
	assert.Equal(t, "Visiting hours are 9am to 5pm.", got)
	assert.True(t, idx.Ready())
}

func TestChainErrorIsNotDegradation(t *testing.T) {
	chain := &fakeChain{err: errors.New("engine timeout")}
	idx := &Index{build: func(ctx context.Context) (answerer, error) { return chain, nil }}

	_, err := idx.Answer(context.Background(), "When are visiting hours?")
	assert.Error(t, err)

	// The index stays initialized and keeps serving later questions.
	chain.err = nil
	chain.response = "9am to 5pm."
	got, err := idx.Answer(context.Background(), "When are visiting hours?")
	require.NoError(t, err)
	assert.Equal(t, "9am to 5pm.", got)
	assert.Equal(t, 2, chain.calls)
}

func TestLoadCorpusFromLocalProvider(t *testing.T) {
	ctx := context.Background()
	provider := storage.NewLocalProvider(t.TempDir())
	require.NoError(t, provider.CreateBucket(ctx, "policies"))
	require.NoError(t, provider.PutObject(ctx, "policies", "visitor_policy.txt", strings.NewReader("Visiting hours are 9am to 5pm.")))
	require.NoError(t, provider.PutObject(ctx, "policies", "discharge_policy.txt", strings.NewReader("Discharge requires a signed summary.")))

	docs, err := loadCorpus(ctx, provider, "policies", nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, doc := range docs {
		assert.NotEmpty(t, doc.Metadata["source"])
	}

	docs, err = loadCorpus(ctx, provider, "policies", []string{"visitor_policy.txt"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "visitor_policy.txt", docs[0].Metadata["source"])
}

func TestLoadCorpusSkipsUnreadableDocuments(t *testing.T) {
	ctx := context.Background()
	provider := storage.NewLocalProvider(t.TempDir())
	require.NoError(t, provider.CreateBucket(ctx, "policies"))
	require.NoError(t, provider.PutObject(ctx, "policies", "visitor_policy.txt", strings.NewReader("Visiting hours are 9am to 5pm.")))
	require.NoError(t, provider.PutObject(ctx, "policies", "empty_policy.txt", strings.NewReader("   ")))

	// A missing or empty document degrades to a smaller corpus, not a
	// failed load.
	docs, err := loadCorpus(ctx, provider, "policies", []string{"missing.txt", "empty_policy.txt", "visitor_policy.txt"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "visitor_policy.txt", docs[0].Metadata["source"])
}

func TestLoadCorpusFailsWhenNothingUsable(t *testing.T) {
	ctx := context.Background()
	provider := storage.NewLocalProvider(t.TempDir())
	require.NoError(t, provider.CreateBucket(ctx, "policies"))

	_, err := loadCorpus(ctx, provider, "policies", []string{"missing.txt"})
	assert.Error(t, err)

	_, err = loadCorpus(ctx, provider, "policies", nil)
	assert.Error(t, err)
}

func TestSplitCorpusChunksLongDocuments(t *testing.T) {
	long := strings.Repeat("Visitors must sign in at the front desk. ", 200)
	docs := []schema.Document{{PageContent: long, Metadata: map[string]any{"source": "visitor_policy.txt"}}}

	chunks, err := splitCorpus(docs)
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.PageContent), chunkSize)
	}
}
