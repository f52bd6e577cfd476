package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/patrickmn/go-cache"
)

const hintToolName = "save_pronunciation"

// Hint is a pronunciation guide for a drug name.
type Hint struct {
	Respelling string   `json:"respelling"`
	Syllables  []string `json:"syllables"`
	Tip        string   `json:"tip,omitempty"`
}

// Hinter asks Anthropic for pronunciation hints. Hints are cached per drug.
type Hinter struct {
	apiKey string
	model  anthropic.Model
	opts   []option.RequestOption
	cache  *cache.Cache
}

// NewHinter creates a new hint client.
func NewHinter(apiKey string, opts ...option.RequestOption) *Hinter {
	return &Hinter{
		apiKey: apiKey,
		model:  anthropic.ModelClaudeSonnet4_5_20250929,
		opts:   opts,
		cache:  cache.New(24*time.Hour, time.Hour),
	}
}

func getHintTool() anthropic.ToolParam {
	return anthropic.ToolParam{
		Name:        hintToolName,
		Description: anthropic.String("Save the pronunciation hint for a drug name"),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"respelling": map[string]any{
					"type":        "string",
					"description": "Plain English respelling with the stressed syllable in capitals",
				},
				"syllables": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "The spoken syllables in order",
				},
				"tip": map[string]any{
					"type":        "string",
					"description": "One short tip about a commonly mispronounced sound",
				},
			},
			Required: []string{"respelling", "syllables"},
		},
	}
}

// Hint returns the pronunciation hint for drug.
func (h *Hinter) Hint(ctx context.Context, drug string) (Hint, error) {
	if v, ok := h.cache.Get(drug); ok {
		return v.(Hint), nil //nolint:forcetypeassert // only Hint is stored
	}

	if h.apiKey == "" {
		return Hint{}, fmt.Errorf("%w: set ANTHROPIC_API_KEY or use --anthropic-key", ErrMissingAPIKey)
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(h.apiKey)}, h.opts...)...)
	toolDef := getHintTool()

	tool := anthropic.ToolUnionParamOfTool(toolDef.InputSchema, toolDef.Name)
	tool.OfTool.Description = toolDef.Description

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     h.model,
		MaxTokens: 512,
		System: []anthropic.TextBlockParam{
			{Text: PronunciationSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(pronunciationUserPrompt(drug))),
		},
		Tools:      []anthropic.ToolUnionParam{tool},
		ToolChoice: anthropic.ToolChoiceParamOfTool(hintToolName),
	})
	if err != nil {
		return Hint{}, fmt.Errorf("failed to get pronunciation hint via Anthropic API: %w", err)
	}

	hint, err := parseHintToolUse(resp.Content)
	if err != nil {
		return Hint{}, err
	}

	h.cache.SetDefault(drug, hint)

	return hint, nil
}

func parseHintToolUse(content []anthropic.ContentBlockUnion) (Hint, error) {
	for _, block := range content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}

		var hint Hint
		if err := json.Unmarshal(toolUse.Input, &hint); err != nil {
			return Hint{}, fmt.Errorf("failed to parse tool input: %w", err)
		}

		if hint.Respelling == "" {
			return Hint{}, errors.New("pronunciation hint has no respelling")
		}

		return hint, nil
	}

	return Hint{}, errors.New("no tool use found in Anthropic API response")
}
