package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaudeWebSearchTool_CarriesLocationHint(t *testing.T) {
	tool := claudeWebSearchTool(Options{SearchCity: "Seattle", SearchRegion: "WA"})

	assert.Equal(t, "web_search_20250305", tool["type"])
	loc, ok := tool["user_location"].(map[string]string)
	require.True(t, ok, "location hint must be in the tool payload")
	assert.Equal(t, "approximate", loc["type"])
	assert.Equal(t, "Seattle", loc["city"])
	assert.Equal(t, "WA", loc["region"])
}

func TestClaudeWebSearchTool_NoLocation(t *testing.T) {
	tool := claudeWebSearchTool(Options{})

	_, present := tool["user_location"]
	assert.False(t, present)
}
