package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	// maxInputWords bounds what is sent to the model; oversize documents
	// are truncated here rather than rejected.
	maxInputWords = 1024

	summaryMinWords = 30
	summaryMaxWords = 180
)

// Summarizer produces abstractive summaries via the Gemini generation API.
// Same lazy-client pattern as Embedder.
type Summarizer struct {
	apiKey     string
	model      string
	clientOpts []option.ClientOption

	mu     sync.Mutex
	client *genai.Client
}

func NewSummarizer(apiKey string, opts ...option.ClientOption) *Summarizer {
	return &Summarizer{
		apiKey:     apiKey,
		model:      "gemini-1.5-flash",
		clientOpts: opts,
	}
}

// Summarize returns a classic summary of text.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(
		"Write an abstractive summary of the following document in %d to %d words. Respond with the summary only.",
		summaryMinWords, summaryMaxWords)
	return s.generate(ctx, prompt, text)
}

// SummarizeTheme returns a summary focused on a single theme, covering only
// the parts of the document relevant to it.
func (s *Summarizer) SummarizeTheme(ctx context.Context, text, theme string) (string, error) {
	prompt := fmt.Sprintf(
		"Write a summary of the following document focused on the theme %q, in %d to %d words. Cover only content relevant to that theme. Respond with the summary only.",
		theme, summaryMinWords, summaryMaxWords)
	return s.generate(ctx, prompt, text)
}

func (s *Summarizer) generate(ctx context.Context, prompt, text string) (string, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return "", err
	}

	text = truncateWords(text, maxInputWords)
	slog.DebugContext(ctx, "summarizing", "model", s.model, "input_length", len(text))

	model := client.GenerativeModel(s.model)
	res, err := model.GenerateContent(ctx, genai.Text(prompt+"\n\n"+text))
	if err != nil {
		slog.ErrorContext(ctx, "summarization failed", "error", err)
		return "", fmt.Errorf("summarize: %w", err)
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", fmt.Errorf("summarize: empty response")
	}

	var b strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	summary := strings.TrimSpace(b.String())
	if summary == "" {
		return "", fmt.Errorf("summarize: empty response")
	}
	return summary, nil
}

func (s *Summarizer) getClient(ctx context.Context) (*genai.Client, error) {
	if s.apiKey == "" {
		return nil, ErrNotConfigured
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	opts := append(s.clientOpts, option.WithAPIKey(s.apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	s.client = client
	return client, nil
}

func truncateWords(text string, max int) string {
	words := strings.Fields(text)
	if len(words) <= max {
		return text
	}
	return strings.Join(words[:max], " ")
}
