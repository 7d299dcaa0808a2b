package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/kawaii-watch/backend/internal/config"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/chat"
)

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Service is the completion backend used by the conversation engine.
type Service struct {
	prompts *PromptManager
	chain   compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates an Ark-backed completion service.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel)
}

// NewServiceWithModel wires the prompt chain around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		prompts: NewPromptManager(),
		chain:   runnable,
	}, nil
}

// Complete asks the model for the next line of the persona whose system
// prompt is given. turns are already labelled from that persona's view.
func (s *Service) Complete(ctx context.Context, system string, turns []chat.Turn, temperature float64) (string, error) {
	input := map[string]any{
		"system":  s.prompts.BuildSystemPrompt(system),
		"history": buildHistoryMessages(turns),
	}

	response, err := s.chain.Invoke(ctx, input,
		compose.WithChatModelOption(model.WithTemperature(float32(temperature))))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", ErrEmptyCompletion
	}

	log.Printf("[ai] completion turns=%d length=%d", len(turns), len(response.Content))
	return response.Content, nil
}

func buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
