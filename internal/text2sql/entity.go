package text2sql

import (
	"regexp"
	"strconv"
	"strings"

	"medichat-backend/pkg/api"
)

// trackedTables maps each tracked entity table to its primary-key column.
// The hospital schema does not use generic id columns on these tables.
var trackedTables = []struct {
	name     string
	idColumn string
}{
	{"patients", "patient_id"},
	{"doctors", "doctor_id"},
	{"diseases", "disease_id"},
	{"appointments", "appointment_id"},
	{"patient_conditions", "patient_conditions_id"},
}

const fallbackIDColumn = "id"

var tableNameRes = func() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp, len(trackedTables))
	for _, t := range trackedTables {
		res[t.name] = regexp.MustCompile(`\b` + t.name + `\b`)
	}
	return res
}()

// InferEntityType scans a generated statement for a tracked table name
// appearing as a whole word. When a query touches several tracked tables the
// first match in the fixed table order above wins; this is heuristic and
// informational only.
func InferEntityType(query string) string {
	lower := strings.ToLower(query)
	for _, t := range trackedTables {
		if tableNameRes[t.name].MatchString(lower) {
			return t.name
		}
	}
	return ""
}

// CollectEntityIDs gathers integer-parseable values from the entity's
// identifier column across all rows. Values that do not parse are skipped
// silently; a missing column yields nothing.
func CollectEntityIDs(entityType string, table *api.Table) []int {
	if entityType == "" || table == nil {
		return nil
	}

	idColumn := fallbackIDColumn
	for _, t := range trackedTables {
		if t.name == entityType {
			idColumn = t.idColumn
			break
		}
	}

	col := columnIndex(table.Columns, idColumn)
	if col < 0 {
		col = columnIndex(table.Columns, fallbackIDColumn)
	}
	if col < 0 {
		return nil
	}

	var ids []int
	for _, row := range table.Values {
		if col >= len(row) {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[col]))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}
