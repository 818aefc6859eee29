// Package tools provides MCP tool handlers and registration.
package tools

import (
	"log/slog"

	"github.com/raphaelgruber/convoflow-go/internal/metrics"
	"github.com/raphaelgruber/convoflow-go/internal/service"
)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Tagger    *service.Tagger
	Responder *service.Responder
	Store     service.ConversationStore
	Events    service.EventLog
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}
