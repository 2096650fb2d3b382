package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/nao1215/reviewharvest/internal/config"
)

const systemPrompt = "You translate app store reviews. Reply with the translation only, " +
	"keeping emoji, line breaks and the tone of the original. " +
	"If the text is already in the requested language, repeat it unchanged."

// OpenAITranslator translates with an OpenAI-compatible chat completion API.
type OpenAITranslator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAITranslator creates a translator from cfg. BaseURL may point at
// any server implementing the chat completions endpoint.
func NewOpenAITranslator(cfg config.TranslationConfig) (*OpenAITranslator, error) {
	if cfg.APIKey == "" {
		return nil, config.ErrNoTranslationKey
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTranslationTimeout
	}

	return &OpenAITranslator{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
	}, nil
}

// Translate implements Translator.
func (t *OpenAITranslator) Translate(ctx context.Context, text, lang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Translate into " + languageName(lang) + ":\n\n" + text},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranslation, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrTranslation)
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("%w: empty translation", ErrTranslation)
	}
	return out, nil
}

// languageName returns the English name of a language code, e.g. "Russian"
// for "ru". Unknown codes are returned as is.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
