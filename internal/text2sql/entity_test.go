package text2sql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"medichat-backend/pkg/api"
)

func TestInferEntityType(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"SELECT name FROM patients", "patients"},
		{"select * from DOCTORS where specialty = 'cardiology'", "doctors"},
		{"SELECT disease_name FROM diseases", "diseases"},
		{"SELECT * FROM appointments WHERE status = 'scheduled'", "appointments"},
		{"SELECT * FROM patient_conditions", "patient_conditions"},
		// Joins resolve to the first tracked table mentioned anywhere in the
		// statement, scanning tables in a fixed order.
		{"SELECT d.name FROM doctors d JOIN patients p ON p.doctor_id = d.doctor_id", "patients"},
		{"SELECT 1", ""},
		{"", ""},
		// Substrings of table names do not count.
		{"SELECT * FROM patientsummary", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, InferEntityType(c.query), "query: %s", c.query)
	}
}

func TestCollectEntityIDs(t *testing.T) {
	table := &api.Table{
		Columns: []string{"Patient_ID", "name"},
		Values: [][]string{
			{"1", "John"},
			{"2", "Jane"},
			{"oops", "Bad"},
			{"3", "Sam"},
		},
	}
	assert.Equal(t, []int{1, 2, 3}, CollectEntityIDs("patients", table))
}

func TestCollectEntityIDsFallbackColumn(t *testing.T) {
	table := &api.Table{
		Columns: []string{"id", "name"},
		Values:  [][]string{{"7", "John"}},
	}
	assert.Equal(t, []int{7}, CollectEntityIDs("patients", table))
}

func TestCollectEntityIDsMissingColumn(t *testing.T) {
	table := &api.Table{
		Columns: []string{"name"},
		Values:  [][]string{{"John"}},
	}
	assert.Nil(t, CollectEntityIDs("patients", table))
	assert.Nil(t, CollectEntityIDs("patients", nil))
	assert.Nil(t, CollectEntityIDs("", table))
}
