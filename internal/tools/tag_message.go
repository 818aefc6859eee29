package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TagMessageInput defines the input schema for the tag_message tool.
type TagMessageInput struct {
	UserID  string `json:"user_id" jsonschema:"required,Stable identifier of the user"`
	Message string `json:"message" jsonschema:"required,The inbound message text"`
}

// NewTagMessageHandler creates the tag_message tool handler.
// Classifies the message, advances conversation score/stage/trust and the
// spend total, and returns the updated state.
func NewTagMessageHandler(deps *Dependencies) mcp.ToolHandlerFor[TagMessageInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input TagMessageInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.UserID == "" {
			return ErrorResult("user_id is required", "Provide the stable identifier of the user"), nil, nil
		}
		if input.Message == "" {
			return ErrorResult("message is required", "Provide the message text to tag"), nil, nil
		}

		result, err := deps.Tagger.TagMessage(ctx, input.UserID, input.Message)
		if err != nil {
			deps.Logger.Error("tag_message failed", "user", input.UserID, "error", err)
			return ErrorResult("Failed to process message", "Database may be unavailable"), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(result, "", "  ")

		deps.Logger.Info("tag_message completed",
			"user", input.UserID, "score", result.Score, "stage", result.Stage, "degraded", result.Degraded)
		return TextResult(string(jsonBytes)), nil, nil
	}
}
