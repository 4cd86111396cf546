package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectStateMachine(t *testing.T) {
	sm := NewProjectStateMachine()

	assert.True(t, sm.CanTransition("pending", "verified"))
	assert.True(t, sm.CanTransition("pending", "rejected"))
	assert.True(t, sm.CanTransition("verified", "tokenized"))

	assert.False(t, sm.CanTransition("pending", "tokenized"))
	assert.False(t, sm.CanTransition("rejected", "verified"))
	assert.False(t, sm.CanTransition("tokenized", "pending"))
	assert.False(t, sm.CanTransition("unknown", "verified"))

	assert.ElementsMatch(t, []string{"verified", "rejected"}, sm.GetAllowedTransitions("pending"))
	assert.Empty(t, sm.GetAllowedTransitions("tokenized"))
}
