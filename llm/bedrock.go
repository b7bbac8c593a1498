package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/m4xw311/termagent/errors"
	"github.com/m4xw311/termagent/session"
	"github.com/m4xw311/termagent/tools"
)

// BedrockClient runs Anthropic models through AWS Bedrock. Requests use the
// raw InvokeModel API with the Anthropic message schema.
type BedrockClient struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewBedrockClient creates a client for the given model ID. AWS credentials
// and region come from the standard environment/config chain.
func NewBedrockClient(ctx context.Context, modelID string) (*BedrockClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config")
	}
	return &BedrockClient{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

// Chat sends the conversation and converts the reply into a session.Message.
func (b *BedrockClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	body, err := bedrockRequestBody(messages, availableTools)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to invoke Bedrock model")
	}
	return fromBedrockResponse(resp.Body)
}

// bedrockRequestBody builds the Anthropic-on-Bedrock request JSON.
func bedrockRequestBody(messages []session.Message, availableTools []tools.Tool) ([]byte, error) {
	bedrockMessages, systemPrompt := toBedrockMessages(messages)

	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        anthropicMaxTokens,
		"messages":          bedrockMessages,
	}
	if systemPrompt != "" {
		request["system"] = systemPrompt
	}
	if len(availableTools) > 0 {
		var toolDefs []map[string]interface{}
		for _, t := range availableTools {
			toolDefs = append(toolDefs, map[string]interface{}{
				"name":        t.Name(),
				"description": t.Description(),
				"input_schema": map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
				},
			})
		}
		request["tools"] = toolDefs
	}

	body, err := json.Marshal(request)
	return body, errors.Wrapf(err, "failed to encode Bedrock request")
}

func toBedrockMessages(messages []session.Message) ([]map[string]interface{}, string) {
	var out []map[string]interface{}
	var systemPrompt string

	textMessage := func(role, text string) map[string]interface{} {
		return map[string]interface{}{
			"role": role,
			"content": []map[string]interface{}{
				{"type": "text", "text": text},
			},
		}
	}

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemPrompt = msg.Content
		case "user":
			out = append(out, textMessage("user", msg.Content))
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				var uses []map[string]interface{}
				for _, tc := range msg.ToolCalls {
					uses = append(uses, map[string]interface{}{
						"type":  "tool_use",
						"id":    tc.ToolCallID,
						"name":  tc.Name,
						"input": tc.Args,
					})
				}
				out = append(out, map[string]interface{}{"role": "assistant", "content": uses})
			} else if msg.Content != "" {
				out = append(out, textMessage("assistant", msg.Content))
			}
		case "tool":
			if len(msg.ToolCalls) == 0 {
				continue
			}
			out = append(out, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type":        "tool_result",
						"tool_use_id": msg.ToolCalls[0].ToolCallID,
						"content":     msg.Content,
					},
				},
			})
		}
	}
	return out, systemPrompt
}

func fromBedrockResponse(body []byte) (*session.Message, error) {
	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Bedrock response")
	}
	if errMsg, ok := response["error"]; ok {
		return nil, errors.New("Bedrock API error: %v", errMsg)
	}

	contentArray, ok := response["content"].([]interface{})
	if !ok {
		return &session.Message{Role: "assistant", Content: ""}, nil
	}

	var content string
	var calls []session.ToolCall

	for i, item := range contentArray {
		block, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		switch block["type"] {
		case "text":
			if text, ok := block["text"].(string); ok {
				content += text
			}
		case "tool_use":
			name, nameOk := block["name"].(string)
			input, inputOk := block["input"].(map[string]interface{})
			if !nameOk || !inputOk {
				continue
			}
			id, _ := block["id"].(string)
			if id == "" {
				id = fmt.Sprintf("call_%d_%s", i, name)
			}
			calls = append(calls, session.ToolCall{
				ToolCallID: id,
				Name:       name,
				Args:       input,
			})
		}
	}

	return &session.Message{Role: "assistant", Content: content, ToolCalls: calls}, nil
}
