package text2sql

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools/sqldatabase"
	_ "github.com/tmc/langchaingo/tools/sqldatabase/postgresql"
)

// sqlPromptTemplate is the schema-constrained translation prompt. The rules
// mirror the hospital schema: per-table primary key names, the
// patient_conditions join pattern, and pure COUNT queries for "how many"
// questions.
const sqlPromptTemplate = `You are a STRICT %s text-to-SQL engine for a hospital database.

REAL DATABASE TABLES AND COLUMNS:
%s

GENERAL RULES (VERY IMPORTANT):
- Use ONLY tables and columns that appear in the schema above. NEVER invent columns.
- NEVER assume generic "id" columns on these tables:
  * patients uses patient_id
  * doctors uses doctor_id
  * diseases uses disease_id
  * appointments uses appointment_id
  * patient_conditions uses patient_conditions_id
- NEVER assume a disease_id column exists on patients. It does NOT.
- For disease/condition questions, join patients -> patient_conditions -> diseases
  and count with COUNT(DISTINCT p.patient_id).
- For "how many ..." questions use a pure COUNT(*) or COUNT(DISTINCT ...) query
  with no LIMIT or ORDER BY.
- Appointment dates live in appointments.encounter_date. There is no
  appointment_date column.
- Emit a single read-only SELECT statement. Never modify data.

OUTPUT FORMAT (STRICT):
SQLQuery: <the SQL statement on one line>

Question: %s
SQLQuery:`

const answerPromptTemplate = `Given the question, the SQL statement that was executed, and its raw result,
write a concise natural-language answer for the user. Start the reply with
"Final Answer:".

Question: %s
SQLQuery: %s
SQLResult: %s
Final Answer:`

// ChainTranslator is the production Translator. It dials the relational
// store lazily on first use (the dial introspects live schema metadata) and
// never re-dials after a failure.
type ChainTranslator struct {
	llm llms.Model
	dsn string

	once    sync.Once
	db      *sqldatabase.SQLDatabase
	initErr error
}

func NewChainTranslator(llm llms.Model, dsn string) *ChainTranslator {
	return &ChainTranslator{llm: llm, dsn: dsn}
}

func (t *ChainTranslator) init() {
	t.db, t.initErr = sqldatabase.NewSQLDatabaseWithDSN("postgresql", t.dsn, nil)
	if t.initErr != nil {
		t.initErr = fmt.Errorf("could not open schema toolkit: %w", t.initErr)
	}
}

func (t *ChainTranslator) Translate(ctx context.Context, question string) (Translation, error) {
	t.once.Do(t.init)
	if t.initErr != nil {
		return Translation{}, t.initErr
	}

	info, err := t.db.TableInfo(ctx, t.db.TableNames())
	if err != nil {
		return Translation{}, fmt.Errorf("could not read table info: %w", err)
	}

	prompt := fmt.Sprintf(sqlPromptTemplate, t.db.Dialect(), info, question)
	out, err := llms.GenerateFromSinglePrompt(ctx, t.llm, prompt, llms.WithTemperature(0))
	if err != nil {
		return Translation{}, fmt.Errorf("translation engine failed: %w", err)
	}

	query, ok := extractSQL(out)
	if !ok {
		return Translation{}, &ParseError{Output: strings.TrimSpace(out)}
	}

	result, err := t.db.Query(ctx, query)
	if err != nil {
		return Translation{}, fmt.Errorf("engine-side query execution failed: %w", err)
	}

	answerPrompt := fmt.Sprintf(answerPromptTemplate, question, query, result)
	answer, err := llms.GenerateFromSinglePrompt(ctx, t.llm, answerPrompt, llms.WithTemperature(0))
	if err != nil {
		return Translation{}, fmt.Errorf("translation engine failed: %w", err)
	}

	return Translation{Answer: strings.TrimSpace(answer), Query: query}, nil
}

// extractSQL pulls the statement out of engine output. The prompt ends with
// "SQLQuery:" so a well-behaved engine emits the bare statement, but some
// echo the label or wrap the statement in a markdown fence.
func extractSQL(output string) (string, bool) {
	s := strings.TrimSpace(output)

	if i := strings.Index(s, "SQLQuery:"); i >= 0 {
		s = s[i+len("SQLQuery:"):]
	}
	if i := strings.Index(s, "SQLResult:"); i >= 0 {
		s = s[:i]
	}

	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```sql")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	if i := strings.Index(s, "\n\n"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)

	if s == "" || !strings.HasPrefix(strings.ToLower(s), "select") {
		return "", false
	}
	return s, true
}
