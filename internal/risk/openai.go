package risk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// chatCompletions is the slice of the OpenAI chat service the generator uses.
type chatCompletions interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type OpenAIGenerator struct {
	chat  chatCompletions
	model string
}

func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIGenerator{chat: &client.Chat.Completions, model: model}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := g.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.4),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
