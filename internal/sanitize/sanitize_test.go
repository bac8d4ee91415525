package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanStripsFinalAnswerLabel(t *testing.T) {
	assert.Equal(t, "There are 5 patients.", Clean("Final Answer: There are 5 patients."))
	assert.Equal(t, "There are 5 patients.", Clean("final answer:   There are 5 patients."))
}

func TestCleanDropsHeaderLines(t *testing.T) {
	in := "The patients and their conditions are as follows:\nJohn Doe - Diabetes\nJane Roe - Asthma"
	assert.Equal(t, "John Doe - Diabetes\nJane Roe - Asthma", Clean(in))

	in = "Here are 10 patients from the database:\nJohn Doe\nJane Roe"
	assert.Equal(t, "John Doe\nJane Roe", Clean(in))
}

func TestCleanStripsEnumerationMarkers(t *testing.T) {
	in := "1. John Doe\n2) Jane Roe\n3- Sam Poe"
	assert.Equal(t, "John Doe\nJane Roe\nSam Poe", Clean(in))
}

func TestCleanFallsBackWhenEverythingDropped(t *testing.T) {
	in := "Final Answer: here are your patients"
	assert.Equal(t, "here are your patients", Clean(in))
}

func TestCleanEmptyInput(t *testing.T) {
	assert.Equal(t, "", Clean(""))
}

func TestCleanIsIdempotent(t *testing.T) {
	inputs := []string{
		"Final Answer: There are 5 patients.",
		"Here are 10 patients:\n1. John Doe\n2. Jane Roe",
		"1. 2) stacked markers",
		"Final Answer: here are your patients",
		"plain sentence with no markers",
		"",
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "input %q", in)
	}
}
