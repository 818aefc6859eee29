package provider

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/raphaelgruber/convoflow-go/internal/models"
)

// DefaultBedrockModel is used when no model id is configured.
const DefaultBedrockModel = "anthropic.claude-3-5-sonnet-20240620-v1:0"

// BedrockBackend implements Backend via the AWS Bedrock Converse API.
type BedrockBackend struct {
	client  *bedrockruntime.Client
	modelID string
}

// Compile-time check that BedrockBackend implements Backend.
var _ Backend = (*BedrockBackend)(nil)

// NewBedrockBackend creates a Bedrock backend using the default AWS
// credential chain. If modelID is empty, DefaultBedrockModel is used.
func NewBedrockBackend(ctx context.Context, modelID, region string) (*BedrockBackend, error) {
	if modelID == "" {
		modelID = DefaultBedrockModel
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &BedrockBackend{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

// Name identifies the backend in logs.
func (b *BedrockBackend) Name() string {
	return "bedrock/" + b.modelID
}

// Classify asks the model for the strict JSON classification object.
func (b *BedrockBackend) Classify(ctx context.Context, in ClassifyInput) (ClassificationResult, error) {
	text, tokens, err := b.converse(ctx, classifySystemPrompt(), nil, classifyUserPrompt(in))
	if err != nil {
		return ClassificationResult{}, fmt.Errorf("classify: %w", err)
	}

	tags, signals, err := parseClassification(text)
	if err != nil {
		return ClassificationResult{}, err
	}

	return ClassificationResult{Tags: tags, Signals: signals, TokensUsed: tokens}, nil
}

// GenerateResponse produces a reply steered by history and context.
func (b *BedrockBackend) GenerateResponse(ctx context.Context, in GenerateInput) (GenerationResult, error) {
	text, tokens, err := b.converse(ctx, generateSystemPrompt(in), in.History, in.Message)
	if err != nil {
		return GenerationResult{}, fmt.Errorf("generate: %w", err)
	}
	return GenerationResult{Text: text, TokensUsed: tokens}, nil
}

// converse runs one Converse call and extracts the first text block plus
// total token usage.
func (b *BedrockBackend) converse(ctx context.Context, system string, history []models.DialogueTurn, message string) (string, int, error) {
	messages := make([]types.Message, 0, len(history)+1)
	for _, turn := range history {
		role := types.ConversationRoleUser
		if turn.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		messages = append(messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: turn.Content}},
		})
	}
	messages = append(messages, types.Message{
		Role:    types.ConversationRoleUser,
		Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: message}},
	})

	out, err := b.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:  aws.String(b.modelID),
		System:   []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}},
		Messages: messages,
	})
	if err != nil {
		return "", 0, fmt.Errorf("converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", 0, fmt.Errorf("unexpected converse output type %T", out.Output)
	}

	text := ""
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			text = t.Value
			break
		}
	}
	if text == "" {
		return "", 0, fmt.Errorf("no text content in converse response")
	}

	tokens := 0
	if out.Usage != nil && out.Usage.TotalTokens != nil {
		tokens = int(*out.Usage.TotalTokens)
	} else {
		tokens = estimateTokens(message, text)
	}

	return text, tokens, nil
}
