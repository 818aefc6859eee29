package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatsInput defines the input schema for the stats tool.
type StatsInput struct{}

// NewStatsHandler creates the stats tool handler.
// Returns in-memory runtime statistics; they reset on process restart.
func NewStatsHandler(deps *Dependencies) mcp.ToolHandlerFor[StatsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (
		*mcp.CallToolResult, any, error,
	) {
		if deps.Metrics == nil {
			return ErrorResult("Stats collection is not enabled", ""), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(deps.Metrics.Snapshot(), "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}
