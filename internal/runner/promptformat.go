package runner

import (
	"fmt"
	"strings"

	"modelmesh/internal/entity"
)

// PromptFormat selects the per-role chat template applied before encoding.
type PromptFormat string

const (
	PromptMistral  PromptFormat = "mistral"
	PromptZephyr   PromptFormat = "zephyr"
	PromptOpenChat PromptFormat = "openchat"
	PromptNone     PromptFormat = "none"
)

// ParsePromptFormat validates a format name from request config, defaulting
// to PromptNone when empty.
func ParsePromptFormat(s string) (PromptFormat, error) {
	switch PromptFormat(strings.ToLower(s)) {
	case "", PromptNone:
		return PromptNone, nil
	case PromptMistral:
		return PromptMistral, nil
	case PromptZephyr:
		return PromptZephyr, nil
	case PromptOpenChat:
		return PromptOpenChat, nil
	default:
		return "", fmt.Errorf("runner: unknown prompt format %q", s)
	}
}

// FormatMessages renders a message list into a single prompt string under
// the given template, joining turns with a single space.
func FormatMessages(format PromptFormat, messages []entity.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, formatTurn(format, m.Role, m.Content))
	}
	return strings.Join(parts, " ")
}

func formatTurn(format PromptFormat, role, content string) string {
	switch format {
	case PromptMistral:
		switch role {
		case "user":
			return fmt.Sprintf("<s>[INST] %s [/INST]", content)
		case "model", "assistant":
			return fmt.Sprintf("\"%s\"</s>", content)
		default:
			return content
		}
	case PromptZephyr:
		switch role {
		case "user":
			return fmt.Sprintf("<|user|>\n%s\n</s>", content)
		case "model", "assistant":
			return fmt.Sprintf("<|assistant|>model\n%s\n</s>", content)
		default:
			return content
		}
	case PromptOpenChat:
		switch role {
		case "user":
			return fmt.Sprintf("GPT4 Correct User: %s<|end_of_turn|>", content)
		case "model", "assistant":
			return fmt.Sprintf("GPT4 Correct Assistant: %s<|end_of_turn|>", content)
		default:
			return content
		}
	default:
		return content
	}
}
