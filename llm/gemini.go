package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/m4xw311/termagent/errors"
	"github.com/m4xw311/termagent/session"
	"github.com/m4xw311/termagent/tools"
)

// GeminiClient talks to the Google Gemini API.
type GeminiClient struct {
	model *genai.GenerativeModel
}

// NewGeminiClient creates a client for the given model. It requires the
// GEMINI_API_KEY environment variable.
func NewGeminiClient(ctx context.Context, modelName string) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}
	return &GeminiClient{model: client.GenerativeModel(modelName)}, nil
}

// Chat sends the conversation and converts the reply into a session.Message.
// Gemini treats the last message as the new prompt and the rest as history.
func (g *GeminiClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	history := toGeminiContent(messages)
	if len(history) == 0 {
		return nil, errors.New("cannot chat with an empty history")
	}

	g.model.Tools = toGeminiTools(availableTools)

	last := history[len(history)-1]
	chat := g.model.StartChat()
	chat.History = history[:len(history)-1]

	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, errors.Wrapf(err, "message request to Gemini failed")
	}
	return fromGeminiResponse(resp)
}

// toGeminiContent converts the session history. Gemini has no system role in
// chat history; system messages are folded into user turns. Assistant tool
// calls are replayed as FunctionCall parts and tool results as
// FunctionResponse parts, keeping multi-round tool conversations within the
// API's function-calling contract.
func toGeminiContent(messages []session.Message) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case "assistant":
			var parts []genai.Part
			if msg.Content != "" || len(msg.ToolCalls) == 0 {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				// Args carry the envelope declared in toGeminiTools.
				parts = append(parts, genai.FunctionCall{
					Name: call.Name,
					Args: map[string]interface{}{"args": call.Args},
				})
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		case "tool":
			name := ""
			if len(msg.ToolCalls) > 0 {
				name = msg.ToolCalls[0].Name
			}
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []genai.Part{genai.FunctionResponse{
					Name:     name,
					Response: map[string]interface{}{"result": msg.Content},
				}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}
	return contents
}

func toGeminiTools(ts []tools.Tool) []*genai.Tool {
	if len(ts) == 0 {
		return nil
	}
	var decls []*genai.FunctionDeclaration
	for _, t := range ts {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"args": {
						Type:        genai.TypeObject,
						Description: "Arguments for the call, as a map.",
					},
				},
				Required: []string{"args"},
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// fromGeminiResponse converts a Gemini response. Function calls come back as
// parts; they are surfaced as tool calls for the agent loop to execute, with
// the arguments unwrapped from the "args" envelope declared in toGeminiTools.
func fromGeminiResponse(resp *genai.GenerateContentResponse) (*session.Message, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("received an empty response from Gemini")
	}

	var content string
	var calls []session.ToolCall

	for i, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			content += string(v)
		case genai.FunctionCall:
			args, ok := v.Args["args"].(map[string]interface{})
			if !ok {
				// Some models skip the envelope and pass arguments directly.
				args = v.Args
			}
			calls = append(calls, session.ToolCall{
				ToolCallID: geminiCallID(v.Name, i),
				Name:       v.Name,
				Args:       args,
			})
		default:
			return nil, errors.New("unsupported part type in Gemini response: %T", v)
		}
	}

	return &session.Message{Role: "assistant", Content: content, ToolCalls: calls}, nil
}

// geminiCallID synthesizes a call ID, since Gemini function calls carry none.
func geminiCallID(name string, index int) string {
	return fmt.Sprintf("gemini_%s_%d", name, index)
}
