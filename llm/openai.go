package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/m4xw311/termagent/errors"
	"github.com/m4xw311/termagent/session"
	"github.com/m4xw311/termagent/tools"
)

// OpenAIClient talks to the OpenAI Chat Completions API or any
// OpenAI-compatible server, such as a locally hosted model endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client for the given model. baseURL, when
// non-empty, points the client at a compatible server; in that case the
// OPENAI_API_KEY environment variable is optional, since local endpoints
// typically do not authenticate.
func NewOpenAIClient(ctx context.Context, modelName, baseURL string) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" && baseURL == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set and no api_endpoint configured")
	}

	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	c := openai.NewClient(opts...)
	return &OpenAIClient{client: &c, model: modelName}, nil
}

// Chat sends the conversation and converts the reply into a session.Message.
func (o *OpenAIClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: toOpenAIMessages(messages),
		Tools:    toOpenAITools(availableTools),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "chat completion request failed")
	}
	return fromOpenAIResponse(resp)
}

func fromOpenAIResponse(resp *openai.ChatCompletion) (*session.Message, error) {
	if len(resp.Choices) == 0 {
		return &session.Message{Role: "assistant", Content: ""}, nil
	}
	choice := resp.Choices[0].Message

	if len(choice.ToolCalls) == 0 {
		return &session.Message{Role: "assistant", Content: choice.Content}, nil
	}

	var calls []session.ToolCall
	for _, tc := range choice.ToolCalls {
		// Arguments arrive as a JSON string holding a flat argument map.
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, errors.Wrapf(err, "could not decode tool call arguments for '%s'", tc.Function.Name)
		}
		calls = append(calls, session.ToolCall{
			ToolCallID: tc.ID,
			Name:       tc.Function.Name,
			Args:       args,
		})
	}
	return &session.Message{Role: "assistant", Content: choice.Content, ToolCalls: calls}, nil
}

func toOpenAIMessages(messages []session.Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			out = append(out, openai.SystemMessage(msg.Content))
		case "assistant":
			assistant := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				argsBytes, err := json.Marshal(tc.Args)
				if err != nil {
					// Drop the malformed call from history rather than
					// poisoning the whole request.
					continue
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   tc.ToolCallID,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      tc.Name,
						Arguments: string(argsBytes),
					},
				})
			}
			out = append(out, assistant.ToParam())
		case "tool":
			// Tool results carry exactly one ToolCall naming the call they answer.
			if len(msg.ToolCalls) != 1 {
				continue
			}
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCalls[0].ToolCallID))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func toOpenAITools(ts []tools.Tool) []openai.ChatCompletionToolUnionParam {
	if len(ts) == 0 {
		return nil
	}
	var out []openai.ChatCompletionToolUnionParam
	for _, t := range ts {
		// A permissive object schema; the argument names are spelled out in
		// each tool's description and the model infers the rest.
		params := openai.FunctionParameters{
			"type":       "object",
			"properties": map[string]any{},
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name(),
			Description: openai.String(t.Description()),
			Parameters:  params,
		}))
	}
	return out
}
