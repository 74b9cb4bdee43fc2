package ai_bot

import "context"

type AIBotAPI interface {
	// SendPrompt asks the model for a JSON formatted completion and returns
	// the model's raw response text.
	SendPrompt(ctx context.Context, prompt string) (string, error)
}
