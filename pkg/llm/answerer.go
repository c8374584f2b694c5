package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/bmeric/docquery/internal/models"
)

// AnswerConfig represents the configuration for an answer engine.
type AnswerConfig struct {
	Provider    string // "googleai" or "ollama"
	Model       string
	APIKey      string // googleai only
	BaseURL     string // ollama server URL
	Temperature float64
	MaxTokens   int
}

const answerPromptTemplate = `You are an AI assistant that helps users find information from documents.
Based on the following context from uploaded documents, please answer the user's question.

User Question: %s

Context from documents:
%s

Instructions:
1. Provide a clear, helpful answer based on the context provided
2. If the context doesn't contain enough information to answer the question, say so
3. Be concise but informative
4. If you reference specific information, mention that it came from the uploaded documents
5. If the question is not related to the document content, politely redirect to ask about the document content

Answer:`

// AnswerEngine synthesizes answers from retrieved document context through
// an external generative model.
type AnswerEngine struct {
	config AnswerConfig
	llm    llms.Model
}

// NewWithConfig creates a new AnswerEngine with the given configuration.
func NewWithConfig(ctx context.Context, config AnswerConfig) (*AnswerEngine, error) {
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	var model llms.Model
	var err error

	switch config.Provider {
	case "ollama":
		if config.Model == "" {
			config.Model = "mistral"
		}
		model, err = ollama.New(ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL))
	default:
		if config.Model == "" {
			config.Model = "gemini-2.0-flash"
		}
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(config.APIKey),
			googleai.WithDefaultModel(config.Model))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &AnswerEngine{
		config: config,
		llm:    model,
	}, nil
}

// Generate answers the query from the assembled context block.
func (e *AnswerEngine) Generate(ctx context.Context, query, contextBlock string) (string, error) {
	prompt := BuildPrompt(query, contextBlock)

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	response, err := e.llm.GenerateContent(ctx, content,
		llms.WithTemperature(e.config.Temperature),
		llms.WithMaxTokens(e.config.MaxTokens))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrAnswerGeneration, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", models.ErrAnswerGeneration)
	}

	return response.Choices[0].Content, nil
}

// BuildPrompt renders the answer-generation prompt for a query and its
// retrieved context.
func BuildPrompt(query, contextBlock string) string {
	return fmt.Sprintf(answerPromptTemplate, query, contextBlock)
}
