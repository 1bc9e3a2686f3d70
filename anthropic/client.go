package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fwojciec/deck"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Interface compliance check.
var _ deck.Provider = (*Client)(nil)

// Client implements [deck.Provider] for the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel sets the model used when a request names none.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithMaxTokens sets the output limit used when a request names none.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new Anthropic [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		maxTokens:  defaultMaxTokens,
		httpClient: http.DefaultClient,
		logger:     logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream sends a streaming request and returns a [deck.Stream] of semantic
// events.
func (c *Client) Stream(ctx context.Context, req deck.Request) (deck.Stream, error) {
	body, err := json.Marshal(c.request(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"status":     resp.StatusCode,
		"request_id": resp.Header.Get("Request-Id"),
	}).Debug("anthropic: response")

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, httpError(resp)
	}
	return newStream(ctx, resp.Body), nil
}

// request converts req to the wire format. The system prompt, the last tool
// and the message window carry cache breakpoints: the infographic
// instructions are long and identical across turns.
func (c *Client) request(req deck.Request) apiRequest {
	out := apiRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
		Messages:    messages(req.Messages),
		Temperature: req.Temperature,
		Cache:       ephemeral,
	}
	if out.Model == "" {
		out.Model = c.model
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = c.maxTokens
	}
	if req.SystemPrompt != "" {
		out.System = []apiBlock{{Type: "text", Text: req.SystemPrompt, Cache: ephemeral}}
	}
	for i, t := range req.Tools {
		tool := apiTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters}
		if i == len(req.Tools)-1 {
			tool.Cache = ephemeral
		}
		out.Tools = append(out.Tools, tool)
	}
	return out
}

func messages(msgs []deck.Message) []apiMessage {
	var out []apiMessage
	for _, msg := range msgs {
		switch m := msg.(type) {
		case deck.UserMessage:
			out = append(out, apiMessage{Role: "user", Content: blocks(m.Content)})
		case deck.AssistantMessage:
			out = append(out, apiMessage{Role: "assistant", Content: blocks(m.Content)})
		case deck.ToolResultMessage:
			result := apiBlock{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   blocks(m.Content),
				IsError:   m.IsError,
			}
			// Results of one assistant turn share a single user message.
			if n := len(out); n > 0 && isToolResults(out[n-1]) {
				out[n-1].Content = append(out[n-1].Content, result)
				continue
			}
			out = append(out, apiMessage{Role: "user", Content: []apiBlock{result}})
		}
	}
	return out
}

func blocks(in []deck.ContentBlock) []apiBlock {
	out := make([]apiBlock, 0, len(in))
	for _, b := range in {
		switch b := b.(type) {
		case deck.TextBlock:
			out = append(out, apiBlock{Type: "text", Text: b.Text})
		case deck.ThinkingBlock:
			out = append(out, apiBlock{Type: "thinking", Thinking: b.Thinking, Signature: string(b.Signature)})
		case deck.ToolCallBlock:
			input := b.Arguments
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			out = append(out, apiBlock{Type: "tool_use", ID: b.ID, Name: b.Name, Input: input})
		case deck.ImageBlock:
			out = append(out, apiBlock{
				Type: "image",
				Source: &apiImage{
					Type:      "base64",
					MediaType: b.MimeType,
					Data:      base64.StdEncoding.EncodeToString(b.Data),
				},
			})
		}
	}
	return out
}

func httpError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	doc := gjson.ParseBytes(body)
	if !gjson.ValidBytes(body) || !doc.Get("error.type").Exists() {
		return fmt.Errorf("anthropic: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("anthropic: %s: %s", doc.Get("error.type").String(), doc.Get("error.message").String())
}

func isToolResults(m apiMessage) bool {
	return m.Role == "user" && len(m.Content) > 0 && m.Content[0].Type == "tool_result"
}
