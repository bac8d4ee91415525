package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/pgvector"

	"medichat-backend/internal/storage"
)

// NotInitializedMessage is returned for every document question once the
// index failed to build. Setup problems need an administrator; retrying
// per request would hide them.
const NotInitializedMessage = "Document search is not initialized (policy documents are not loaded or there was an error in setup). Please contact the administrator."

// buildTimeout bounds the one-time index build, independent of whichever
// request happens to trigger it.
const buildTimeout = 5 * time.Minute

const qaPromptTemplate = `You are a hospital policy assistant. Answer the question using only the policy excerpts below.

Rules:
- Base your answer strictly on the excerpts. Do not use outside knowledge.
- If the excerpts do not contain the answer, say you are not certain and suggest contacting hospital administration.
- If two excerpts conflict, point out the conflict instead of picking one.
- Keep the answer short and factual.

Policy excerpts:
{{.context}}

Question: {{.question}}

Answer:`

type answerer interface {
	answer(ctx context.Context, question string) (string, error)
}

// Index answers questions over a fixed corpus of policy documents. The
// underlying vector store and QA chain are built on first use and never
// rebuilt; a failed build degrades the index permanently.
type Index struct {
	once    sync.Once
	build   func(ctx context.Context) (answerer, error)
	chain   answerer
	initErr error
}

type IndexConfig struct {
	LLM        llms.Model
	Embedder   embeddings.Embedder
	PgDSN      string
	Collection string
	TopK       int
	Corpus     CorpusSource
}

// CorpusSource names where the policy documents live. An empty Documents
// list means the whole bucket.
type CorpusSource struct {
	Provider  storage.Provider
	Bucket    string
	Documents []string
}

func NewIndex(cfg IndexConfig) *Index {
	idx := &Index{}
	idx.build = func(ctx context.Context) (answerer, error) {
		return buildChain(ctx, cfg)
	}
	return idx
}

// Answer runs the question through the QA chain, building the index on
// the first call. Once a build has failed every later call returns the
// fixed degradation message without touching storage or the engine.
func (i *Index) Answer(ctx context.Context, question string) (string, error) {
	i.once.Do(func() {
		// The build outlives the request that triggered it. Tying it to
		// the request context would turn one cancelled first request
		// into permanent degradation.
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()

		chain, err := i.build(buildCtx)
		if err != nil {
			slog.Error("policy document index setup failed, document questions are disabled", "error", err)
			i.initErr = err
			return
		}
		i.chain = chain
	})

	if i.initErr != nil {
		return NotInitializedMessage, nil
	}

	answer, err := i.chain.answer(ctx, question)
	if err != nil {
		return "", fmt.Errorf("error answering document question: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// Ready reports whether the index has been built successfully. It never
// triggers a build.
func (i *Index) Ready() bool {
	return i.chain != nil && i.initErr == nil
}

type qaChain struct {
	chain chains.Chain
}

func (c qaChain) answer(ctx context.Context, question string) (string, error) {
	return chains.Run(ctx, c.chain, question)
}

func buildChain(ctx context.Context, cfg IndexConfig) (answerer, error) {
	docs, err := loadCorpus(ctx, cfg.Corpus.Provider, cfg.Corpus.Bucket, cfg.Corpus.Documents)
	if err != nil {
		return nil, err
	}

	chunks, err := splitCorpus(docs)
	if err != nil {
		return nil, err
	}

	store, err := pgvector.New(ctx,
		pgvector.WithConnectionURL(cfg.PgDSN),
		pgvector.WithEmbedder(cfg.Embedder),
		pgvector.WithCollectionName(cfg.Collection),
		pgvector.WithPreDeleteCollection(true),
	)
	if err != nil {
		return nil, fmt.Errorf("error connecting to vector store: %w", err)
	}

	if _, err := store.AddDocuments(ctx, chunks); err != nil {
		return nil, fmt.Errorf("error indexing policy documents: %w", err)
	}

	prompt := prompts.NewPromptTemplate(qaPromptTemplate, []string{"context", "question"})
	combine := chains.NewStuffDocuments(chains.NewLLMChain(cfg.LLM, prompt))

	topK := cfg.TopK
	if topK <= 0 {
		topK = 4
	}

	return qaChain{chain: chains.NewRetrievalQA(combine, vectorstores.ToRetriever(store, topK))}, nil
}
