package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siraa-ai/siraa-backend/internal/models"
)

// fakeMessages replays scripted model responses and records the request
// params it saw.
type fakeMessages struct {
	responses []*anthropic.Message
	err       error
	requests  []anthropic.MessageNewParams
}

func (f *fakeMessages) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.requests = append(f.requests, params)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, errors.New("fakeMessages: no scripted response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func textResponse(text string) *anthropic.Message {
	return &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: text},
		},
	}
}

func toolUseResponse(id, name, input string) *anthropic.Message {
	return &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "tool_use", ID: id, Name: name, Input: json.RawMessage(input)},
		},
	}
}

func TestEngine_RespondPlainText(t *testing.T) {
	messages := &fakeMessages{responses: []*anthropic.Message{
		textResponse("Hello! I'm Siraa, how can I help?"),
	}}
	engine := newEngineForTest(messages, &fakeKnowledge{})

	reply, err := engine.Respond(context.Background(), nil, "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello! I'm Siraa, how can I help?", reply)

	require.Len(t, messages.requests, 1)
	req := messages.requests[0]
	assert.Len(t, req.Tools, 5, "all retrieval tools must be offered")
	assert.Equal(t, defaultModel, req.Model)
	require.Len(t, req.System, 1)
	assert.Contains(t, req.System[0].Text, "Siraa")
}

func TestEngine_WithModelOverride(t *testing.T) {
	messages := &fakeMessages{responses: []*anthropic.Message{
		textResponse("ok"),
	}}
	engine := newEngineForTest(messages, &fakeKnowledge{}, WithModel("claude-opus-4-20250514"))

	_, err := engine.Respond(context.Background(), nil, "hi")
	require.NoError(t, err)

	require.Len(t, messages.requests, 1)
	assert.Equal(t, anthropic.Model("claude-opus-4-20250514"), messages.requests[0].Model)
}

func TestEngine_RespondRunsToolLoop(t *testing.T) {
	messages := &fakeMessages{responses: []*anthropic.Message{
		toolUseResponse("tu_1", toolFindImage, `{"property_name":"Skyscape Avenue"}`),
		textResponse("https://cdn.example.com/skyscape-small.jpg"),
	}}
	engine := newEngineForTest(messages, &fakeKnowledge{properties: []*models.Property{skyscape()}})

	reply, err := engine.Respond(context.Background(), nil, "send me a photo of skyscape avenue")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/skyscape-small.jpg", reply)

	// Second request must carry the assistant tool_use turn and its result
	require.Len(t, messages.requests, 2)
	second := messages.requests[1]
	require.Len(t, second.Messages, 3)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, second.Messages[1].Role)
	assert.Equal(t, anthropic.MessageParamRoleUser, second.Messages[2].Role)
}

func TestEngine_RespondPreservesHistory(t *testing.T) {
	messages := &fakeMessages{responses: []*anthropic.Message{
		textResponse("Both have marina views."),
	}}
	engine := newEngineForTest(messages, &fakeKnowledge{})

	history := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("show me apartments")),
		anthropic.NewAssistantMessage(anthropic.NewTextBlock("Here are two options...")),
	}

	_, err := engine.Respond(context.Background(), history, "which has sea views?")
	require.NoError(t, err)

	require.Len(t, messages.requests, 1)
	assert.Len(t, messages.requests[0].Messages, 3)
}

func TestEngine_RespondAPIFailure(t *testing.T) {
	messages := &fakeMessages{err: errors.New("overloaded")}
	engine := newEngineForTest(messages, &fakeKnowledge{})

	_, err := engine.Respond(context.Background(), nil, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic api")
}

func TestEngine_RespondMaxTurns(t *testing.T) {
	// Model keeps asking for tools and never produces a final answer
	loop := make([]*anthropic.Message, 0, 3)
	for i := 0; i < 3; i++ {
		loop = append(loop, toolUseResponse("tu_n", toolSearchFAQs, `{"query":"again"}`))
	}
	messages := &fakeMessages{responses: loop}
	engine := newEngineForTest(messages, &fakeKnowledge{}, WithMaxTurns(3))

	_, err := engine.Respond(context.Background(), nil, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum turns")
}

func TestEngine_ExtractPreferences(t *testing.T) {
	messages := &fakeMessages{responses: []*anthropic.Message{
		textResponse("Here is the JSON:\n{\"location\": \"Dubai Marina\", \"bedrooms\": \"2\"}"),
	}}
	engine := newEngineForTest(messages, &fakeKnowledge{})

	delta, err := engine.ExtractPreferences(context.Background(), "2br near the marina", nil)
	require.NoError(t, err)
	assert.Equal(t, "Dubai Marina", delta["location"])
	assert.Equal(t, "2", delta["bedrooms"])
}

func TestEngine_ExtractPreferencesNoJSON(t *testing.T) {
	messages := &fakeMessages{responses: []*anthropic.Message{
		textResponse("no preferences found"),
	}}
	engine := newEngineForTest(messages, &fakeKnowledge{})

	delta, err := engine.ExtractPreferences(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Empty(t, delta)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSONObject("```json\n{\"a\":1}\n```"))
	assert.Equal(t, "{}", extractJSONObject("nothing here"))
	assert.Equal(t, "{}", extractJSONObject("}{"))
}
