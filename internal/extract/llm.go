package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/followup/internal/ollama"
)

// DefaultLLMTimeout bounds a single model call.
const DefaultLLMTimeout = 10 * time.Second

const systemPrompt = "Extract actionable tasks from the user's notes. " +
	"Respond strictly as a JSON array of strings with each string " +
	"representing one action item."

// OllamaChatter is the subset of the Ollama client used for extraction.
type OllamaChatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error)
}

// LLMExtractor asks a local model for action items and falls back to the
// heuristic Extractor whenever the model cannot produce a usable answer.
type LLMExtractor struct {
	client   OllamaChatter
	model    string
	timeout  time.Duration
	fallback *Extractor
	logger   *slog.Logger
}

// NewLLMExtractor creates an LLMExtractor. A zero timeout means
// DefaultLLMTimeout and a nil fallback means DefaultRules.
func NewLLMExtractor(client OllamaChatter, model string, timeout time.Duration, fallback *Extractor) *LLMExtractor {
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}
	if fallback == nil {
		fallback = defaultExtractor
	}
	return &LLMExtractor{
		client:   client,
		model:    model,
		timeout:  timeout,
		fallback: fallback,
		logger:   slog.Default(),
	}
}

// Extract returns the model's action items for text. Blank input returns an
// empty slice without calling the model.
func (l *LLMExtractor) Extract(ctx context.Context, text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	items, ok := l.ask(ctx, text)
	if !ok {
		return l.fallback.Extract(text)
	}
	return items
}

// ExtractDetailed is Extract with metadata derived from each returned item.
func (l *LLMExtractor) ExtractDetailed(ctx context.Context, text string) []Item {
	if strings.TrimSpace(text) == "" {
		return []Item{}
	}
	items, ok := l.ask(ctx, text)
	if !ok {
		return l.fallback.ExtractDetailed(text)
	}
	out := make([]Item, len(items))
	for i, s := range items {
		out[i] = l.fallback.Annotate(s)
	}
	return out
}

func (l *LLMExtractor) ask(ctx context.Context, text string) ([]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	messages := []ollama.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: strings.TrimSpace(text)},
	}

	raw, err := l.client.Chat(ctx, l.model, messages, ollama.StringArraySchema())
	if err != nil {
		l.logger.Warn("llm extraction failed, using heuristics", "model", l.model, "error", err)
		return nil, false
	}

	var parsed []any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		l.logger.Warn("llm returned non-array output, using heuristics", "error", err, "response", raw)
		return nil, false
	}

	var seen dedup
	items := []string{}
	for _, v := range parsed {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s != "" && seen.add(s) {
			items = append(items, s)
		}
	}
	if len(items) == 0 {
		l.logger.Warn("llm returned no action items, using heuristics", "model", l.model)
		return nil, false
	}
	return items, true
}
