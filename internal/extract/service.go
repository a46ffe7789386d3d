package extract

import "context"

// Service is the extraction mode chosen at startup: the heuristic rules or
// the model-backed extractor.
type Service interface {
	Extract(ctx context.Context, text string) []string
	ExtractDetailed(ctx context.Context, text string) []Item
}

// Heuristic exposes e as a Service. A nil e uses DefaultRules.
func Heuristic(e *Extractor) Service {
	if e == nil {
		e = defaultExtractor
	}
	return heuristic{e}
}

type heuristic struct{ e *Extractor }

func (h heuristic) Extract(_ context.Context, text string) []string { return h.e.Extract(text) }

func (h heuristic) ExtractDetailed(_ context.Context, text string) []Item {
	return h.e.ExtractDetailed(text)
}

var _ Service = (*LLMExtractor)(nil)
