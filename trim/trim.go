// Package trim bounds the size of conversational state sent to an LLM.
//
// A model call has a hard input ceiling. When the rolling message history
// exceeds the budget, every message is shrunk by the same proportion:
// list-valued fields in structured (JSON) content lose elements from the
// tail, free text is cut and marked. Proportional degradation keeps every
// field partially represented instead of dropping one field entirely.
package trim

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/richinex/themescout/llm"
)

// TruncationMarker is appended to text that was cut short.
const TruncationMarker = "...[TRUNCATED]"

// DefaultMinFloorChars is the minimum character count a trimmed text
// field is reduced to, regardless of ratio.
const DefaultMinFloorChars = 1000

// Estimator estimates the size in tokens of a message sequence.
// The trimming algorithm is independent of how sizes are measured, so a
// precise tokenizer can be substituted without changing it.
type Estimator interface {
	Estimate(ctx context.Context, messages []llm.ChatMessage) (int, error)
}

// CharEstimator approximates token count as total characters / 4.
type CharEstimator struct{}

// Estimate returns the heuristic token count.
func (CharEstimator) Estimate(_ context.Context, messages []llm.ChatMessage) (int, error) {
	chars := 0
	for _, m := range messages {
		chars += len(m.Role) + len(m.Content)
	}
	return chars / 4, nil
}

// ProviderEstimator uses a provider's token counting endpoint when the
// provider implements llm.TokenCounter, falling back to CharEstimator on
// error.
type ProviderEstimator struct {
	counter  llm.TokenCounter
	fallback CharEstimator
	logger   zerolog.Logger
}

// NewProviderEstimator wraps a token counting provider.
func NewProviderEstimator(counter llm.TokenCounter, logger zerolog.Logger) *ProviderEstimator {
	return &ProviderEstimator{counter: counter, logger: logger}
}

// Estimate counts tokens via the provider, falling back to the character
// heuristic if the call fails. Counting failures must not block a pipeline
// stage.
func (e *ProviderEstimator) Estimate(ctx context.Context, messages []llm.ChatMessage) (int, error) {
	n, err := e.counter.CountTokens(ctx, messages)
	if err != nil {
		e.logger.Warn().Err(err).Msg("token count failed, using character heuristic")
		return e.fallback.Estimate(ctx, messages)
	}
	return n, nil
}

// EstimatorFor returns the best available estimator for a provider:
// exact counting when supported, the character heuristic otherwise.
func EstimatorFor(provider llm.Provider, logger zerolog.Logger) Estimator {
	if counter, ok := provider.(llm.TokenCounter); ok {
		return NewProviderEstimator(counter, logger)
	}
	return CharEstimator{}
}

// Trimmer shrinks message sequences to fit a token budget.
type Trimmer struct {
	budget        int
	minFloorChars int
	estimator     Estimator
	logger        zerolog.Logger
}

// NewTrimmer creates a trimmer with the given token budget.
func NewTrimmer(budget int, estimator Estimator, logger zerolog.Logger) *Trimmer {
	return &Trimmer{
		budget:        budget,
		minFloorChars: DefaultMinFloorChars,
		estimator:     estimator,
		logger:        logger,
	}
}

// MinFloorChars overrides the text truncation floor.
func (t *Trimmer) MinFloorChars(n int) *Trimmer {
	t.minFloorChars = n
	return t
}

// Budget returns the configured token budget.
func (t *Trimmer) Budget() int {
	return t.budget
}

// Trim returns the messages shrunk to fit the budget. Under budget it
// returns the input unchanged. Trimming never increases size; if the
// result is still over budget a warning is logged and the best-effort
// result is returned rather than an error.
func (t *Trimmer) Trim(ctx context.Context, messages []llm.ChatMessage) ([]llm.ChatMessage, error) {
	current, err := t.estimator.Estimate(ctx, messages)
	if err != nil {
		return nil, err
	}
	if current <= t.budget {
		return messages, nil
	}

	ratio := float64(t.budget) / float64(current)

	trimmed := make([]llm.ChatMessage, len(messages))
	for i, msg := range messages {
		trimmed[i] = llm.ChatMessage{
			Role:    msg.Role,
			Content: t.trimContent(msg.Content, ratio),
		}
	}

	after, err := t.estimator.Estimate(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if after > t.budget {
		t.logger.Warn().
			Int("budget", t.budget).
			Int("before", current).
			Int("after", after).
			Msg("still over budget after trimming, proceeding best-effort")
	} else {
		t.logger.Debug().
			Int("before", current).
			Int("after", after).
			Msg("trimmed context to budget")
	}

	return trimmed, nil
}

// trimContent shrinks one message body. Structured JSON content has its
// list-valued fields truncated proportionally; anything else is treated
// as free text.
func (t *Trimmer) trimContent(content string, ratio float64) string {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(content), &parsed); err == nil {
		shrunk := shrinkLists(parsed, ratio)
		out, err := json.Marshal(shrunk)
		if err == nil && len(out) <= len(content) {
			return string(out)
		}
		return content
	}
	return t.trimText(content, ratio)
}

// trimText cuts free text to max(minFloorChars, floor(len*ratio)) characters
// and appends the truncation marker. Text at or below the target is left
// alone so trimming stays monotonic.
func (t *Trimmer) trimText(text string, ratio float64) string {
	target := int(float64(len(text)) * ratio)
	if target < t.minFloorChars {
		target = t.minFloorChars
	}
	if len(text) <= target+len(TruncationMarker) {
		return text
	}
	// Back the cut point up to a rune boundary so multi-byte characters
	// are never split into invalid UTF-8.
	for target > 0 && !utf8.RuneStart(text[target]) {
		target--
	}
	return text[:target] + TruncationMarker
}

// shrinkLists walks a decoded JSON value, truncating every array to
// max(1, floor(len*ratio)) elements. Order is preserved so retention is
// front-biased. Nested objects and arrays are walked recursively.
func shrinkLists(value interface{}, ratio float64) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = shrinkLists(inner, ratio)
		}
		return out
	case []interface{}:
		keep := int(float64(len(v)) * ratio)
		if keep < 1 {
			keep = 1
		}
		if keep > len(v) {
			keep = len(v)
		}
		out := make([]interface{}, keep)
		for i := 0; i < keep; i++ {
			out[i] = shrinkLists(v[i], ratio)
		}
		return out
	default:
		return v
	}
}
