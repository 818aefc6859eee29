//go:build integration

package tools_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/convoflow-go/internal/budget"
	"github.com/raphaelgruber/convoflow-go/internal/db"
	"github.com/raphaelgruber/convoflow-go/internal/models"
	"github.com/raphaelgruber/convoflow-go/internal/provider"
	"github.com/raphaelgruber/convoflow-go/internal/scoring"
	"github.com/raphaelgruber/convoflow-go/internal/service"
	"github.com/raphaelgruber/convoflow-go/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// testLogger creates a logger for test visibility.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeStore backs the orchestrators with in-memory state.
type fakeStore struct {
	mu     sync.Mutex
	seq    int
	convs  map[string]*models.Conversation
	byUser map[string]string
	events map[string][]models.ConversationEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		convs:  map[string]*models.Conversation{},
		byUser: map[string]string{},
		events: map[string][]models.ConversationEvent{},
	}
}

func (s *fakeStore) FindOrCreateConversation(ctx context.Context, userID string, initialStage models.Stage) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byUser[userID]; ok {
		c := *s.convs[id]
		return &c, nil
	}
	s.seq++
	id := fmt.Sprintf("conv-%d", s.seq)
	conv := &models.Conversation{
		ID:         surrealmodels.RecordID{Table: "conversation", ID: id},
		UserID:     userID,
		TrustLevel: models.DefaultTrustLevel,
		Stage:      initialStage,
		LastTags:   []string{},
		CreatedAt:  time.Now(),
	}
	s.convs[id] = conv
	s.byUser[userID] = id
	c := *conv
	return &c, nil
}

func (s *fakeStore) FindConversationByUserID(ctx context.Context, userID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUser[userID]
	if !ok {
		return nil, nil
	}
	c := *s.convs[id]
	return &c, nil
}

func (s *fakeStore) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, *c)
	}
	return out, nil
}

func (s *fakeStore) UpdateConversation(ctx context.Context, id string, u db.ConversationUpdate) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	conv.CurrentScore = u.Score
	conv.CumulativeScore += u.CumulativeDelta
	conv.LastTags = u.Tags
	conv.TrustLevel = u.Trust
	conv.Stage = u.Stage
	conv.MessageCount++
	conv.ConversationCost += u.CostDelta
	conv.OverBudget = conv.ConversationCost >= u.BudgetThreshold
	conv.LastInteractionAt = time.Now()
	c := *conv
	return &c, nil
}

func (s *fakeStore) TouchConversation(ctx context.Context, id string) error {
	return nil
}

func (s *fakeStore) AppendEvent(ctx context.Context, conversationID string, eventType models.EventType, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[conversationID] = append(s.events[conversationID], models.ConversationEvent{
		Type:      eventType,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *fakeStore) ListEventsByConversation(ctx context.Context, conversationID string) ([]models.ConversationEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ConversationEvent{}, s.events[conversationID]...), nil
}

// fakeRouter answers classification and generation with fixed results.
type fakeRouter struct{}

func (fakeRouter) Classify(ctx context.Context, in provider.ClassifyInput) (provider.ClassificationResult, error) {
	return provider.ClassificationResult{
		Tags:       []string{"ARCHITECTURE"},
		Signals:    []string{scoring.SignalArchitectureDesign},
		TokensUsed: 1000,
	}, nil
}

func (fakeRouter) GenerateResponse(ctx context.Context, in provider.GenerateInput) (provider.GenerationResult, error) {
	return provider.GenerationResult{Text: "sounds like a plan", TokensUsed: 40}, nil
}

func testDependencies(t *testing.T) *tools.Dependencies {
	t.Helper()

	store := newFakeStore()
	tracker, err := budget.NewTracker(0.002, 5.0)
	require.NoError(t, err)

	deps := service.Deps{
		Store:   store,
		Events:  store,
		Router:  fakeRouter{},
		Engine:  scoring.Default(),
		Tracker: tracker,
		Logger:  testLogger(),
	}

	return &tools.Dependencies{
		Tagger:    service.NewTagger(deps),
		Responder: service.NewResponder(deps, 10),
		Store:     store,
		Events:    store,
		Logger:    testLogger(),
	}
}

// startSession spins up a server with all tools on an in-memory transport
// and returns a connected client session.
func startSession(t *testing.T, ctx context.Context, deps *tools.Dependencies) *mcp.ClientSession {
	t.Helper()

	impl := &mcp.Implementation{
		Name:    "test-convoflow",
		Version: "0.0.1-test",
	}
	server := mcp.NewServer(impl, nil)
	tools.RegisterAll(server, deps)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	go func() {
		_ = server.Run(ctx, serverTransport)
	}()
	time.Sleep(50 * time.Millisecond)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err, "client should connect successfully")
	t.Cleanup(func() { session.Close() })
	return session
}

func callText(t *testing.T, ctx context.Context, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	textContent, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content should be TextContent")
	return textContent.Text, result.IsError
}

func TestToolRegistration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session := startSession(t, ctx, testDependencies(t))

	result, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, result.Tools, 7)

	names := map[string]bool{}
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"ping", "tag_message", "generate_response", "get_conversation", "list_conversations", "conversation_events", "stats"} {
		assert.True(t, names[want], "tool %s should be registered", want)
	}
}

func TestPingTool(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session := startSession(t, ctx, testDependencies(t))

	t.Run("ping returns pong", func(t *testing.T) {
		text, isErr := callText(t, ctx, session, "ping", map[string]any{})
		assert.Equal(t, "pong", text)
		assert.False(t, isErr)
	})

	t.Run("ping echoes input", func(t *testing.T) {
		text, isErr := callText(t, ctx, session, "ping", map[string]any{"echo": "hello world"})
		assert.Equal(t, "hello world", text)
		assert.False(t, isErr)
	})
}

func TestTagMessageTool(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session := startSession(t, ctx, testDependencies(t))

	t.Run("requires user_id", func(t *testing.T) {
		_, isErr := callText(t, ctx, session, "tag_message", map[string]any{"message": "hi"})
		assert.True(t, isErr)
	})

	t.Run("tags and advances state", func(t *testing.T) {
		text, isErr := callText(t, ctx, session, "tag_message", map[string]any{
			"user_id": "user-1",
			"message": "how should we shard the database?",
		})
		require.False(t, isErr, "unexpected error: %s", text)

		var res struct {
			Score int    `json:"score"`
			Stage string `json:"stage"`
			Tags  []string
		}
		require.NoError(t, json.Unmarshal([]byte(text), &res))
		assert.Equal(t, 30, res.Score)
		assert.Equal(t, "analysis", res.Stage)
	})
}

func TestConversationTools(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session := startSession(t, ctx, testDependencies(t))

	t.Run("get_conversation for unknown user errors", func(t *testing.T) {
		text, isErr := callText(t, ctx, session, "get_conversation", map[string]any{"user_id": "nobody"})
		assert.True(t, isErr)
		assert.Contains(t, text, "No conversation found")
	})

	// Seed state through the public surface
	_, isErr := callText(t, ctx, session, "tag_message", map[string]any{"user_id": "user-2", "message": "hello"})
	require.False(t, isErr)
	_, isErr = callText(t, ctx, session, "generate_response", map[string]any{"user_id": "user-2", "message": "hello"})
	require.False(t, isErr)

	t.Run("get_conversation returns state", func(t *testing.T) {
		text, isErr := callText(t, ctx, session, "get_conversation", map[string]any{"user_id": "user-2"})
		require.False(t, isErr)

		var view struct {
			UserID     string `json:"user_id"`
			Stage      string `json:"stage"`
			TrustLevel int    `json:"trust_level"`
		}
		require.NoError(t, json.Unmarshal([]byte(text), &view))
		assert.Equal(t, "user-2", view.UserID)
		assert.NotEmpty(t, view.Stage)
	})

	t.Run("conversation_events returns append order", func(t *testing.T) {
		text, isErr := callText(t, ctx, session, "conversation_events", map[string]any{"user_id": "user-2"})
		require.False(t, isErr)

		var events []struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal([]byte(text), &events))
		require.NotEmpty(t, events)
		assert.Equal(t, "message_received", events[0].Type)
		assert.Equal(t, "assistant_response", events[len(events)-1].Type)
	})

	t.Run("list_conversations includes user", func(t *testing.T) {
		text, isErr := callText(t, ctx, session, "list_conversations", map[string]any{})
		require.False(t, isErr)
		assert.Contains(t, text, "user-2")
	})
}
