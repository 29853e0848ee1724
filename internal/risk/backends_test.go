package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	model  string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.config = model, config
	return f.resp, f.err
}

func TestGeminiGenerate(t *testing.T) {
	fm := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: " MODERATE \n"}}}}},
	}}
	g := &GeminiGenerator{models: fm, model: "gemini-2.5-flash"}

	out, err := g.Generate(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "MODERATE", out)
	assert.Equal(t, "gemini-2.5-flash", fm.model)
	require.NotNil(t, fm.config.SystemInstruction)
	assert.Equal(t, "system", fm.config.SystemInstruction.Parts[0].Text)
}

func TestGeminiGenerateNoCandidates(t *testing.T) {
	g := &GeminiGenerator{models: &fakeModels{resp: &genai.GenerateContentResponse{}}, model: "m"}
	_, err := g.Generate(context.Background(), "s", "u")
	assert.Error(t, err)

	g = &GeminiGenerator{models: &fakeModels{err: errors.New("quota")}, model: "m"}
	_, err = g.Generate(context.Background(), "s", "u")
	assert.ErrorContains(t, err, "quota")
}

type fakeChat struct {
	resp *openai.ChatCompletion
	err  error
	body openai.ChatCompletionNewParams
}

func (f *fakeChat) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.body = body
	return f.resp, f.err
}

func TestOpenAIGenerate(t *testing.T) {
	fc := &fakeChat{resp: &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "Hello there "}}},
	}}
	g := &OpenAIGenerator{chat: fc, model: "gpt-4o-mini"}

	out, err := g.Generate(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "Hello there", out)
	assert.Equal(t, openai.ChatModel("gpt-4o-mini"), fc.body.Model)
	assert.Len(t, fc.body.Messages, 2)
}

func TestOpenAIGenerateNoChoices(t *testing.T) {
	g := &OpenAIGenerator{chat: &fakeChat{resp: &openai.ChatCompletion{}}, model: "m"}
	_, err := g.Generate(context.Background(), "s", "u")
	assert.Error(t, err)
}
