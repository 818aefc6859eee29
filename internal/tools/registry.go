package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	// Ping tool - liveness check
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ping",
		Description: "Test tool - responds with pong or echoes input",
	}, NewPingHandler(deps))

	// Tag message - classify and advance conversation state
	mcp.AddTool(server, &mcp.Tool{
		Name:        "tag_message",
		Description: "Classify an inbound message and advance the conversation's score, stage, trust and spend",
	}, NewTagMessageHandler(deps))

	// Generate response - history-aware reply generation
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_response",
		Description: "Generate a reply steered by the conversation's recent history, stage and trust level",
	}, NewGenerateResponseHandler(deps))

	// Get conversation - current state for a user
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_conversation",
		Description: "Retrieve the conversation state for a user",
	}, NewGetConversationHandler(deps))

	// List conversations - most recently active first
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_conversations",
		Description: "List all conversations ordered by last interaction",
	}, NewListConversationsHandler(deps))

	// Conversation events - the append-only audit trail
	mcp.AddTool(server, &mcp.Tool{
		Name:        "conversation_events",
		Description: "List the event history of a user's conversation in append order",
	}, NewConversationEventsHandler(deps))

	// Stats - in-memory runtime statistics
	mcp.AddTool(server, &mcp.Tool{
		Name:        "stats",
		Description: "Show in-memory runtime statistics (resets on restart)",
	}, NewStatsHandler(deps))
}
