package validation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ConversationID string `json:"conversationId" validate:"required"`
	Content        string `json:"content" validate:"max=3"`
	Status         string `json:"status,omitempty" validate:"omitempty,oneof=online away"`
}

func TestMessageUsesJSONNames(t *testing.T) {
	v := New()

	err := v.Struct(sample{})
	require.Error(t, err)
	assert.Equal(t, "conversationId is required", Message(err))

	err = v.Struct(sample{ConversationID: "c", Content: "سلام!"})
	assert.Equal(t, "content must be at most 3", Message(err))

	err = v.Struct(sample{ConversationID: "c", Status: "gone"})
	assert.Equal(t, "status must be one of: online away", Message(err))

	assert.NoError(t, v.Struct(sample{ConversationID: "c", Content: "abc"}))
	assert.Equal(t, "Invalid input data", Message(fmt.Errorf("other")))
}
