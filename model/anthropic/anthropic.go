// Package anthropic implements model.Service using the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/angiesanchezm/genai-music/model"
)

// Options configure the Anthropic service adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Service wraps the Anthropic Messages API behind model.Service.
type Service struct {
	model.Classifier

	client *anthropic.Client
	opts   Options
}

// New creates a Service using the official client. The API key falls back to
// the environment when not set explicitly.
func New(optFns ...func(o *Options)) *Service {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)
	return newService(&client, opts)
}

// NewFromClient creates a Service from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Service {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return newService(client, opts)
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.3,
		MaxTokens:   1024,
	}
}

func newService(client *anthropic.Client, opts Options) *Service {
	s := &Service{client: client, opts: opts}
	s.Classifier = model.Classifier{Generator: s.Generate}
	return s
}

// Generate runs one non-streaming message with optional tool calling.
func (s *Service) Generate(ctx context.Context, req model.Request) (model.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       s.opts.Model,
		Messages:    buildMessages(req.Turns),
		MaxTokens:   s.opts.MaxTokens,
		Temperature: anthropic.Float(s.opts.Temperature),
	}
	if system := systemBlocks(req); len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return model.Response{}, fmt.Errorf("anthropic api error: %w", err)
	}

	out := model.Response{
		FinishReason: string(resp.StopReason),
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Text += block.AsText().Text
		case "tool_use":
			tb := block.AsToolUse()
			args := json.RawMessage(`{}`)
			if tb.Input != nil {
				if encoded, err := json.Marshal(tb.Input); err == nil {
					args = encoded
				}
			}
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{
				ID:        tb.ID,
				Name:      tb.Name,
				Arguments: args,
			})
		}
	}
	return out, nil
}

// systemBlocks folds the instructions and any system turns into the
// Messages API system parameter.
func systemBlocks(req model.Request) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	if req.Instructions != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: req.Instructions})
	}
	for _, turn := range req.Turns {
		if turn.Role == "system" && turn.Text != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: turn.Text})
		}
	}
	return blocks
}

// buildMessages converts normalized turns to the Messages API format. Tool
// results belong in user-role messages per the API contract.
func buildMessages(turns []model.Turn) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	for _, turn := range turns {
		switch turn.Role {
		case "system":
			continue
		case "assistant":
			var content []anthropic.ContentBlockParamUnion
			if turn.Text != "" {
				content = append(content, anthropic.NewTextBlock(turn.Text))
			}
			for _, tc := range turn.ToolCalls {
				var input any
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &input); err != nil {
						input = string(tc.Arguments)
					}
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(content) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(content...))
			}
		case "tool":
			var content []anthropic.ContentBlockParamUnion
			for _, tr := range turn.ToolResults {
				content = append(content, anthropic.NewToolResultBlock(tr.ID, tr.Content, false))
			}
			if len(content) > 0 {
				messages = append(messages, anthropic.NewUserMessage(content...))
			}
		default:
			if turn.Text != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Text)))
			}
		}
	}
	return messages
}

// buildTools converts tool definitions to the Anthropic tool format.
func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, td := range tools {
		schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if td.Parameters != nil {
			if properties, ok := td.Parameters["properties"]; ok {
				schema.Properties = properties
			}
			switch required := td.Parameters["required"].(type) {
			case []string:
				schema.Required = required
			case []any:
				for _, r := range required {
					if s, ok := r.(string); ok {
						schema.Required = append(schema.Required, s)
					}
				}
			}
		}
		out[i] = anthropic.ToolUnionParamOfTool(schema, td.Name)
	}
	return out
}

// Info returns metadata describing this adapter.
func (s *Service) Info() model.Info {
	return model.Info{Name: string(s.opts.Model), Provider: "anthropic", SupportsTools: true}
}

var _ model.Service = (*Service)(nil)
