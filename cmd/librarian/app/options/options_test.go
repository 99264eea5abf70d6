package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteBackfillsNestedDefaults(t *testing.T) {
	opts := NewServerOptions()
	opts.AssistantOptions.MaxDescriptionChars = 0
	opts.CacheOptions.KeyPrefix = ""

	require.NoError(t, opts.Complete())

	assert.Equal(t, 200, opts.AssistantOptions.MaxDescriptionChars)
	assert.Equal(t, "librarian:ask:", opts.CacheOptions.KeyPrefix)
}

func TestDefaultsPassValidation(t *testing.T) {
	opts := NewServerOptions()
	// 默认 chat 供应商是 gemini，需要 API key
	opts.ChatOptions.APIKey = "test-key"

	require.NoError(t, opts.Complete())
	assert.NoError(t, opts.Validate())
}
