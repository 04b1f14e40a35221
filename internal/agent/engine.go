package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultSystemPrompt mirrors the concierge persona and tool routing rules.
const DefaultSystemPrompt = `You are Siraa, a helpful real estate assistant.

RULES:
- For any questions about properties, you MUST use the search_properties tool. Output the result from this tool directly to the user without any modification or summary.
- For questions about images, brochures, or floor plans, you MUST use the correct tool (find_property_image, find_property_brochure, find_property_floor_plan).
- If one of those tools returns a URL, your final answer MUST be only the URL.
- For all other general questions, use the search_faqs tool.`

const (
	defaultModel     = anthropic.ModelClaudeSonnet4_20250514
	defaultMaxTokens = 1024
	defaultMaxTurns  = 8
)

// messageCreator is the slice of the Anthropic client the engine needs.
// Satisfied by (&anthropic.Client{}).Messages; tests substitute a fake.
type messageCreator interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Engine drives the Claude tool-use loop over a conversation history.
type Engine struct {
	messages     messageCreator
	exec         *Executor
	model        anthropic.Model
	maxTokens    int64
	maxTurns     int
	systemPrompt string
}

// Option configures the engine.
type Option func(*Engine)

// WithModel overrides the Claude model id.
func WithModel(model anthropic.Model) Option {
	return func(e *Engine) { e.model = model }
}

// WithMaxTurns overrides the tool-use turn limit.
func WithMaxTurns(n int) Option {
	return func(e *Engine) { e.maxTurns = n }
}

// WithSystemPrompt overrides the system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(e *Engine) { e.systemPrompt = prompt }
}

// NewEngine creates an engine bound to an Anthropic client and a knowledge
// source.
func NewEngine(client *anthropic.Client, knowledge Knowledge, opts ...Option) *Engine {
	e := &Engine{
		messages:     &client.Messages,
		exec:         NewExecutor(knowledge),
		model:        defaultModel,
		maxTokens:    defaultMaxTokens,
		maxTurns:     defaultMaxTurns,
		systemPrompt: DefaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// newEngineForTest wires an engine with a fake message creator.
func newEngineForTest(messages messageCreator, knowledge Knowledge, opts ...Option) *Engine {
	e := &Engine{
		messages:     messages,
		exec:         NewExecutor(knowledge),
		model:        defaultModel,
		maxTokens:    defaultMaxTokens,
		maxTurns:     defaultMaxTurns,
		systemPrompt: DefaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Respond runs one conversational turn: the user text is appended to the
// supplied history and the model is called until it stops asking for tools.
// Tool traffic stays internal; only the final assistant text is returned.
func (e *Engine) Respond(ctx context.Context, history []anthropic.MessageParam, userText string) (string, error) {
	msgs := make([]anthropic.MessageParam, 0, len(history)+2)
	msgs = append(msgs, history...)
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(userText)))

	for turn := 0; turn < e.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("conversation cancelled: %w", err)
		}

		params := anthropic.MessageNewParams{
			Model:     e.model,
			MaxTokens: e.maxTokens,
			Messages:  msgs,
			System:    []anthropic.TextBlockParam{{Text: e.systemPrompt}},
			Tools:     apiTools(),
		}

		resp, err := e.messages.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("anthropic api: %w", err)
		}

		var text string
		var assistantBlocks []anthropic.ContentBlockParamUnion
		var toolResults []anthropic.ContentBlockParamUnion

		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				text += block.Text
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(block.Text))
			case "tool_use":
				assistantBlocks = append(assistantBlocks, anthropic.NewToolUseBlock(block.ID, json.RawMessage(block.Input), block.Name))
				result, isErr := e.exec.Execute(ctx, block.Name, block.Input)
				toolResults = append(toolResults, anthropic.NewToolResultBlock(block.ID, result, isErr))
			}
		}

		if len(toolResults) == 0 {
			return strings.TrimSpace(text), nil
		}

		msgs = append(msgs, anthropic.NewAssistantMessage(assistantBlocks...))
		msgs = append(msgs, anthropic.NewUserMessage(toolResults...))
	}

	return "", fmt.Errorf("exceeded maximum turns (%d)", e.maxTurns)
}

// ExtractPreferences asks the model for a preference delta from one user
// message. Failures and unparseable output degrade to an empty delta.
func (e *Engine) ExtractPreferences(ctx context.Context, message string, current map[string]any) (map[string]any, error) {
	currentJSON, err := json.Marshal(current)
	if err != nil {
		currentJSON = []byte("{}")
	}

	prompt := fmt.Sprintf(`Analyze this message and extract real estate preferences.

Current preferences: %s
Message: %s

Return a JSON object with these fields ONLY if they are mentioned:
{
  "location": "e.g. Dubai Marina",
  "property_type": "apartment/villa/etc.",
  "bedrooms": "number or range",
  "budget": "number or range",
  "amenities": ["list", "of", "amenities"]
}
If no new info, return {}. Respond with JSON only.`, currentJSON, message)

	resp, err := e.messages.New(ctx, anthropic.MessageNewParams{
		Model:     e.model,
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return map[string]any{}, fmt.Errorf("preference extraction: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	delta := map[string]any{}
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &delta); err != nil {
		return map[string]any{}, fmt.Errorf("preference extraction: %w", err)
	}
	return delta, nil
}

// extractJSONObject pulls the first {...} object out of a model reply that
// may be wrapped in prose or code fences.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "{}"
	}
	return text[start : end+1]
}
