package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fwojciec/deck"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ deck.Provider = (*Client)(nil)

// Client implements [deck.Provider] for the Google Gemini API.
type Client struct {
	client *genai.Client
	model  string
	newID  func() string
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model ID. Default is gemini-3.1-pro-preview.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithIDGenerator sets the function that names function calls the API
// returns without an ID.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) { c.newID = fn }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c := &Client{
		client: gc,
		model:  defaultModel,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Stream sends a streaming request and returns a [deck.Stream] over the
// response chunks.
func (c *Client) Stream(ctx context.Context, req deck.Request) (deck.Stream, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	seq := c.client.Models.GenerateContentStream(ctx, model, contents(req.Messages), config(req))
	return newStream(ctx, seq, c.newID), nil
}

func config(req deck.Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
		Tools:           tools(req.Tools),
		ThinkingConfig:  &genai.ThinkingConfig{IncludeThoughts: true},
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		cfg.Temperature = &temp
	}
	return cfg
}

func contents(msgs []deck.Message) []*genai.Content {
	var out []*genai.Content
	for _, msg := range msgs {
		switch m := msg.(type) {
		case deck.UserMessage:
			out = append(out, &genai.Content{Role: "user", Parts: parts(m.Content)})
		case deck.AssistantMessage:
			out = append(out, &genai.Content{Role: "model", Parts: parts(m.Content)})
		case deck.ToolResultMessage:
			key := "output"
			if m.IsError {
				key = "error"
			}
			resp := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     m.ToolName,
				Response: map[string]any{key: firstText(m.Content)},
			}}
			// Consecutive results answer one model turn and share a content.
			if n := len(out); n > 0 && out[n-1].Role == "user" && isResponses(out[n-1].Parts) {
				out[n-1].Parts = append(out[n-1].Parts, resp)
				continue
			}
			out = append(out, &genai.Content{Role: "user", Parts: []*genai.Part{resp}})
		}
	}
	return out
}

func isResponses(ps []*genai.Part) bool {
	if len(ps) == 0 {
		return false
	}
	for _, p := range ps {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return true
}

func parts(blocks []deck.ContentBlock) []*genai.Part {
	var out []*genai.Part
	for _, b := range blocks {
		switch bl := b.(type) {
		case deck.TextBlock:
			out = append(out, &genai.Part{Text: bl.Text})
		case deck.ThinkingBlock:
			out = append(out, &genai.Part{Text: bl.Thinking, Thought: true, ThoughtSignature: bl.Signature})
		case deck.ToolCallBlock:
			var args map[string]any
			_ = json.Unmarshal(bl.Arguments, &args)
			out = append(out, &genai.Part{
				FunctionCall:     &genai.FunctionCall{ID: bl.ID, Name: bl.Name, Args: args},
				ThoughtSignature: bl.Signature,
			})
		case deck.ImageBlock:
			out = append(out, &genai.Part{InlineData: &genai.Blob{MIMEType: bl.MimeType, Data: bl.Data}})
		}
	}
	return out
}

func firstText(blocks []deck.ContentBlock) string {
	for _, b := range blocks {
		if tb, ok := b.(deck.TextBlock); ok {
			return tb.Text
		}
	}
	return ""
}

func tools(ts []deck.Tool) []*genai.Tool {
	if len(ts) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, len(ts))
	for i, t := range ts {
		var schema map[string]any
		_ = json.Unmarshal(t.Parameters, &schema)
		decls[i] = &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: schema,
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
