package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"

	"medichat-backend/internal/docparse"
	"medichat-backend/internal/storage"
)

const (
	chunkSize    = 1500
	chunkOverlap = 200
)

// loadCorpus reads the policy documents from storage and converts them to
// plain text. PDFs go through the markdown converter, everything else is
// treated as text. Unreadable or empty documents are skipped with a
// warning; the load fails only when nothing usable remains.
func loadCorpus(ctx context.Context, provider storage.Provider, bucket string, keys []string) ([]schema.Document, error) {
	if len(keys) == 0 {
		objects, err := provider.ListObjects(ctx, bucket, "")
		if err != nil {
			return nil, fmt.Errorf("error listing policy documents: %w", err)
		}
		for _, obj := range objects {
			keys = append(keys, obj.Name)
		}
	}

	var docs []schema.Document
	for _, key := range keys {
		contents, err := provider.GetObject(ctx, bucket, key)
		if err != nil {
			slog.Warn("skipping unreadable policy document", "document", key, "error", err)
			continue
		}

		var text string
		if docparse.IsPDF(key, contents) {
			text, err = docparse.PDFToMarkdown(contents)
			if err != nil {
				slog.Warn("skipping unparseable policy document", "document", key, "error", err)
				continue
			}
		} else {
			text = string(contents)
		}

		if strings.TrimSpace(text) == "" {
			slog.Warn("skipping empty policy document", "document", key)
			continue
		}

		docs = append(docs, schema.Document{
			PageContent: text,
			Metadata:    map[string]any{"source": key},
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no usable policy documents found in bucket %s", bucket)
	}

	return docs, nil
}

func splitCorpus(docs []schema.Document) ([]schema.Document, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
	chunks, err := textsplitter.SplitDocuments(splitter, docs)
	if err != nil {
		return nil, fmt.Errorf("error splitting policy documents: %w", err)
	}
	return chunks, nil
}
