package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GenerateResponseInput defines the input schema for the generate_response tool.
type GenerateResponseInput struct {
	UserID    string `json:"user_id" jsonschema:"required,Stable identifier of the user"`
	Message   string `json:"message" jsonschema:"required,The message to reply to"`
	PersonaID string `json:"persona_id,omitempty" jsonschema:"Optional persona to respond as"`
	Context   string `json:"context,omitempty" jsonschema:"Optional extra context for the reply"`
}

// NewGenerateResponseHandler creates the generate_response tool handler.
// Produces a reply steered by the conversation's recent history, stage and
// trust level. Unlike tag_message this fails when no backend can answer.
func NewGenerateResponseHandler(deps *Dependencies) mcp.ToolHandlerFor[GenerateResponseInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GenerateResponseInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.UserID == "" {
			return ErrorResult("user_id is required", "Provide the stable identifier of the user"), nil, nil
		}
		if input.Message == "" {
			return ErrorResult("message is required", "Provide the message to reply to"), nil, nil
		}

		result, err := deps.Responder.GenerateResponse(ctx, input.UserID, input.Message, input.PersonaID, input.Context)
		if err != nil {
			deps.Logger.Error("generate_response failed", "user", input.UserID, "error", err)
			return ErrorResult("Failed to generate a response", "All configured backends may be unreachable"), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(result, "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}
