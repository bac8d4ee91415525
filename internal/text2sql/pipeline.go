package text2sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"medichat-backend/pkg/api"
)

// QueryResult is the caller-visible outcome of one structured-query turn.
type QueryResult struct {
	Question string
	Query    string
	Answer   string
}

// Answer bundles the query result with the optional materialized table and
// the inferred entity context used for follow-up questions.
type Answer struct {
	Result     QueryResult
	Table      *api.Table
	EntityType string
	EntityIDs  []int
}

type Pipeline struct {
	translator Translator
	db         *gorm.DB
	timeout    time.Duration
}

func NewPipeline(translator Translator, db *gorm.DB, timeout time.Duration) *Pipeline {
	return &Pipeline{translator: translator, db: db, timeout: timeout}
}

// Answer runs one structured-query turn. Parse failures with a salvageable
// span degrade into a plain answer with the query marked unavailable; any
// other translation failure is returned to the caller. Table
// materialization and entity inference never fail the turn.
func (p *Pipeline) Answer(ctx context.Context, question string) (Answer, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	translation, err := p.translator.Translate(ctx, question)
	if err != nil {
		var perr *ParseError
		if !errors.As(err, &perr) {
			return Answer{}, err
		}
		salvaged, ok := SalvageAnswer(err.Error())
		if !ok {
			return Answer{}, err
		}
		slog.Warn("salvaged answer from unparseable engine output", "question", question)
		translation = Translation{Answer: salvaged, Query: QueryUnavailableParse}
	}

	query := translation.Query
	if query == "" {
		query = QueryUnavailable
	}

	ans := Answer{
		Result: QueryResult{Question: question, Query: query, Answer: translation.Answer},
	}

	ans.Table = p.buildTable(ctx, query)
	ans.EntityType = InferEntityType(query)
	if ans.Table != nil {
		ans.EntityIDs = CollectEntityIDs(ans.EntityType, ans.Table)
	}

	return ans, nil
}

// buildTable independently re-executes a read-only statement and converts
// the result set for transport. Statements that are not plain SELECTs are
// skipped, and any execution error (including schema errors) degrades to
// "no table" rather than failing the pipeline.
func (p *Pipeline) buildTable(ctx context.Context, query string) *api.Table {
	if !IsSelect(query) {
		return nil
	}

	rows, err := p.db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		slog.Warn("table materialization failed", "error", err)
		return nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		slog.Warn("table materialization failed", "error", err)
		return nil
	}

	table := &api.Table{Columns: cols, Values: [][]string{}}
	for rows.Next() {
		values := make([]any, len(cols))
		for i := range values {
			values[i] = new(any)
		}
		if err := rows.Scan(values...); err != nil {
			slog.Warn("table materialization failed", "error", err)
			return nil
		}

		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = stringifyCell(*(v.(*any)))
		}
		table.Values = append(table.Values, row)
	}
	if err := rows.Err(); err != nil {
		slog.Warn("table materialization failed", "error", err)
		return nil
	}

	return table
}

// IsSelect reports whether the statement's trimmed, case-folded prefix is
// "select". Only such statements are ever independently executed.
func IsSelect(query string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(query)), "select")
}

func stringifyCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(c)
	case string:
		return c
	case time.Time:
		return c.Format("2006-01-02 15:04:05")
	case sql.RawBytes:
		return string(c)
	default:
		return fmt.Sprintf("%v", c)
	}
}
