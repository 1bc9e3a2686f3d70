// Package agent orchestrates the conversation loop between a Provider and a ToolExecutor.
package agent

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fwojciec/deck"
	"github.com/sirupsen/logrus"
)

// DefaultMaxSteps bounds the number of provider requests in one Run.
const DefaultMaxSteps = 5

// Loop orchestrates the conversation between a Provider and a ToolExecutor.
type Loop struct {
	provider deck.Provider
	executor deck.ToolExecutor
}

// New creates a new Loop with the given provider and tool executor.
func New(provider deck.Provider, executor deck.ToolExecutor) *Loop {
	return &Loop{provider: provider, executor: executor}
}

// RunOption configures a single Run invocation.
type RunOption func(*runConfig)

type runConfig struct {
	onEvent  func(deck.Event)
	onStatus func(deck.ChatStatus)
	model    string
	maxSteps int
	logger   logrus.FieldLogger
	streamed bool
	usage    deck.Usage
}

// WithEventHandler sets a callback that receives each streaming event during
// the run, plus an EventToolResult for every executed tool call.
func WithEventHandler(h func(deck.Event)) RunOption {
	return func(c *runConfig) {
		c.onEvent = h
	}
}

// WithStatusHandler sets a callback for the response lifecycle: submitted
// before the first request, streaming on the first event, then ready or
// error when Run returns.
func WithStatusHandler(h func(deck.ChatStatus)) RunOption {
	return func(c *runConfig) {
		c.onStatus = h
	}
}

// WithModel sets the model ID for provider requests during this run.
// Empty string means the provider uses its default model.
func WithModel(model string) RunOption {
	return func(c *runConfig) {
		c.model = model
	}
}

// WithMaxSteps caps the provider requests made by one Run. Values below one
// are ignored.
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithLogger sets the logger for the run.
func WithLogger(l logrus.FieldLogger) RunOption {
	return func(c *runConfig) {
		c.logger = l
	}
}

// Run executes the agent loop. It sends the chat's messages to the provider,
// streams the response, executes any tool calls, and repeats until the assistant
// stops requesting tools or the step limit is reached. It appends all
// messages to chat.Messages.
func (l *Loop) Run(ctx context.Context, chat *deck.Chat, tools []deck.Tool, opts ...RunOption) error {
	cfg := runConfig{maxSteps: DefaultMaxSteps, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.status(deck.StatusSubmitted)
	err := l.run(ctx, chat, tools, &cfg)
	cfg.logger.WithFields(logrus.Fields{
		"input_tokens":  cfg.usage.Input(),
		"output_tokens": cfg.usage.OutputTokens,
	}).Debug("agent: run finished")
	if err != nil {
		cfg.status(deck.StatusError)
		return err
	}
	cfg.status(deck.StatusReady)
	return nil
}

func (l *Loop) run(ctx context.Context, chat *deck.Chat, tools []deck.Tool, cfg *runConfig) error {
	for step := 1; ; step++ {
		cont, err := l.turn(ctx, chat, tools, cfg)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		if step >= cfg.maxSteps {
			cfg.logger.WithField("steps", step).Warn("agent: step limit reached")
			return nil
		}
	}
}

// turn executes a single turn of the conversation loop. It returns true if the
// loop should continue (tool calls were made), false if it should stop.
func (l *Loop) turn(ctx context.Context, chat *deck.Chat, tools []deck.Tool, cfg *runConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	req := deck.Request{
		Model:        cfg.model,
		SystemPrompt: chat.SystemPrompt,
		Messages:     chat.Messages,
		Tools:        tools,
	}
	if err := req.Validate(); err != nil {
		return false, fmt.Errorf("agent: %w", err)
	}

	stream, err := l.provider.Stream(ctx, req)
	if err != nil {
		return false, err
	}
	defer stream.Close()

	var streamErr error
	for {
		evt, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			streamErr = err
			break
		}
		if !cfg.streamed {
			cfg.streamed = true
			cfg.status(deck.StatusStreaming)
		}
		cfg.event(evt)
	}

	// Partial messages are kept so the chat shows what arrived before a failure.
	msg, msgErr := stream.Message()
	if msgErr != nil {
		if streamErr != nil {
			return false, streamErr
		}
		return false, msgErr
	}

	chat.Messages = append(chat.Messages, msg)
	chat.UpdatedAt = time.Now()
	cfg.usage = cfg.usage.Add(msg.Usage)
	if msg.StopReason.Incomplete() {
		cfg.logger.WithField("stop_reason", msg.StopReason).Warn("agent: response cut short")
	}

	if streamErr != nil {
		return false, streamErr
	}

	toolCalls := msg.ToolCalls()
	if len(toolCalls) == 0 {
		return false, nil
	}

	for _, tc := range toolCalls {
		result, execErr := l.executor.Execute(ctx, tc)
		if execErr != nil {
			cfg.logger.WithError(execErr).WithField("tool", tc.Name).Error("agent: tool failed")
			result = &deck.ToolResult{
				Content: []deck.ContentBlock{deck.TextBlock{Text: execErr.Error()}},
				IsError: true,
			}
		}

		chat.Messages = append(chat.Messages, deck.ToolResultMessage{
			ToolCallID: tc.ID,
			ToolName:   tc.Name,
			Content:    result.Content,
			IsError:    result.IsError,
			Timestamp:  time.Now(),
		})
		cfg.event(deck.EventToolResult{
			ID:       tc.ID,
			ToolName: tc.Name,
			Content:  result.Text(),
			IsError:  result.IsError,
		})
	}
	chat.UpdatedAt = time.Now()

	return true, nil
}

func (c *runConfig) event(e deck.Event) {
	if c.onEvent != nil {
		c.onEvent(e)
	}
}

func (c *runConfig) status(s deck.ChatStatus) {
	if c.onStatus != nil {
		c.onStatus(s)
	}
}
