package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/m4xw311/termagent/errors"
	"github.com/m4xw311/termagent/session"
	"github.com/m4xw311/termagent/tools"
)

const anthropicMaxTokens = 4096

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a client for the given model. It requires the
// ANTHROPIC_API_KEY environment variable.
func NewAnthropicClient(ctx context.Context, modelName string) (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{client: &client, model: modelName}, nil
}

// Chat sends the conversation and converts the reply into a session.Message.
func (a *AnthropicClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	anthropicMessages, systemPrompt := toAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		Messages:  anthropicMessages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	for _, t := range toAnthropicTools(availableTools) {
		tool := t
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &tool})
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "message request to Anthropic failed")
	}
	return fromAnthropicResponse(resp)
}

// toAnthropicMessages converts the session history. Anthropic takes the
// system prompt out of band, so it is returned separately; the last system
// message in the history wins.
func toAnthropicMessages(messages []session.Message) ([]anthropic.MessageParam, string) {
	var out []anthropic.MessageParam
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemPrompt = msg.Content
		case "user":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				var blocks []anthropic.ContentBlockParamUnion
				for _, tc := range msg.ToolCalls {
					argsBytes, err := json.Marshal(tc.Args)
					if err != nil {
						continue
					}
					blocks = append(blocks, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{
							Type:  "tool_use",
							ID:    tc.ToolCallID,
							Name:  tc.Name,
							Input: argsBytes,
						},
					})
				}
				out = append(out, anthropic.MessageParam{
					Role:    anthropic.MessageParamRoleAssistant,
					Content: blocks,
				})
			} else if msg.Content != "" {
				out = append(out, anthropic.MessageParam{
					Role: anthropic.MessageParamRoleAssistant,
					Content: []anthropic.ContentBlockParamUnion{{
						OfText: &anthropic.TextBlockParam{Text: msg.Content},
					}},
				})
			}
		case "tool":
			if len(msg.ToolCalls) == 0 {
				continue
			}
			// Tool results ride in a user-role message per the Messages API.
			out = append(out, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: msg.ToolCalls[0].ToolCallID,
						Content: []anthropic.ToolResultBlockParamContentUnion{{
							OfText: &anthropic.TextBlockParam{Text: msg.Content},
						}},
					},
				}},
			})
		}
	}
	return out, systemPrompt
}

func toAnthropicTools(ts []tools.Tool) []anthropic.ToolParam {
	var out []anthropic.ToolParam
	for _, t := range ts {
		out = append(out, anthropic.ToolParam{
			Name:        t.Name(),
			Description: anthropic.String(t.Description()),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{},
			},
		})
	}
	return out
}

func fromAnthropicResponse(resp *anthropic.Message) (*session.Message, error) {
	var content string
	var calls []session.ToolCall

	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += b.Text
		case anthropic.ToolUseBlock:
			var args map[string]interface{}
			if err := json.Unmarshal(b.Input, &args); err != nil {
				return nil, errors.Wrapf(err, "could not decode tool use input for '%s'", b.Name)
			}
			calls = append(calls, session.ToolCall{
				ToolCallID: b.ID,
				Name:       b.Name,
				Args:       args,
			})
		}
	}

	return &session.Message{Role: "assistant", Content: content, ToolCalls: calls}, nil
}
