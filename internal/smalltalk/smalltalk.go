package smalltalk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
)

const systemPrompt = `You are the friendly front desk assistant of a hospital chatbot.

You handle greetings, small talk, and questions the chatbot cannot answer from its database or policy documents.

Rules:
- If the user introduces themselves (for example "hi i am John"), greet them by name.
- If the question is about hospital data or hospital policies, tell the user to ask it as a direct question so the right system can answer it.
- If the question is entirely outside the hospital's scope, say so politely and steer the conversation back to hospital topics.
- Never invent medical facts, patient data, or policy details. You do not have access to any of those.
- Keep replies to one or two sentences.`

// Generator is the chat completion surface of the OpenAI client, split
// out so tests can substitute a fake.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type OpenAIGenerator struct {
	client openai.Client
	model  string
	temp   float64
}

func NewOpenAIGenerator(model string, temp float64) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(),
		model:  model,
		temp:   temp,
	}
}

func (o *OpenAIGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)

	if len(systemPrompt) > 0 {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	res, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       o.model,
		Temperature: openai.Float(o.temp),
	})
	if err != nil {
		slog.Error("openai error: chat completions failed", "error", err)
		return "", fmt.Errorf("openai generation failed: %w", err)
	}

	return firstChoiceContent(res)
}

// firstChoiceContent guards against completions that carry no choices,
// which the API can return on content filtering.
func firstChoiceContent(res *openai.ChatCompletion) (string, error) {
	if res == nil || len(res.Choices) == 0 {
		return "", fmt.Errorf("openai generation returned no choices")
	}
	return res.Choices[0].Message.Content, nil
}

// Responder produces the conversational replies for greetings and
// questions that belong to no other route.
type Responder struct {
	generator Generator
}

func NewResponder(generator Generator) *Responder {
	return &Responder{generator: generator}
}

func (r *Responder) Reply(ctx context.Context, question string) (string, error) {
	reply, err := r.generator.Generate(ctx, systemPrompt, question)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
