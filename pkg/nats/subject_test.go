package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjects(t *testing.T) {
	assert.Equal(t, "codereview.abc.RUN_QUEUED", Subject("abc", "RUN_QUEUED"))
	assert.Equal(t, "codereview.abc.>", RunSubjects("abc"))
}
