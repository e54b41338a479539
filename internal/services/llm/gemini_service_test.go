package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/bizassess/internal/interfaces"
	"google.golang.org/genai"
)

func TestBuildContents(t *testing.T) {
	contents := buildContents(interfaces.GenerationRequest{Prompt: "assess"})
	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 1)
	assert.Equal(t, "assess", contents[0].Parts[0].Text)

	contents = buildContents(interfaces.GenerationRequest{
		Prompt: "assess",
		File:   &interfaces.UploadedFile{Name: "files/1", URI: "https://files/1", MIMEType: "application/pdf"},
	})
	require.Len(t, contents[0].Parts, 2)
	require.NotNil(t, contents[0].Parts[0].FileData)
	assert.Equal(t, "https://files/1", contents[0].Parts[0].FileData.FileURI)
	assert.Equal(t, "assess", contents[0].Parts[1].Text)
}

func TestGroundingFromMetadata(t *testing.T) {
	assert.Nil(t, groundingFromMetadata(nil))
	assert.Nil(t, groundingFromMetadata(&genai.GroundingMetadata{}))

	grounding := groundingFromMetadata(&genai.GroundingMetadata{
		WebSearchQueries: []string{"smart farm market size"},
		GroundingChunks: []*genai.GroundingChunk{
			{Web: &genai.GroundingChunkWeb{Title: "Market report", URI: "https://example.com/r"}},
			{},
			nil,
		},
	})
	require.NotNil(t, grounding)
	assert.Equal(t, []string{"smart farm market size"}, grounding.WebSearchQueries)
	require.Len(t, grounding.Sources, 1)
	assert.Equal(t, "Market report", grounding.Sources[0].Title)
	assert.Equal(t, "https://example.com/r", grounding.Sources[0].URI)
}
