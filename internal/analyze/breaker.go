package analyze

import (
	"context"

	"github.com/evonota/evonota/internal/model"
	"github.com/evonota/evonota/internal/resilience"
)

type breakerAnalyzer struct {
	inner   Analyzer
	breaker *resilience.Breaker
}

// WithBreaker guards an analyzer with a circuit breaker. A nil breaker
// returns the analyzer unchanged.
func WithBreaker(inner Analyzer, breaker *resilience.Breaker) Analyzer {
	if breaker == nil {
		return inner
	}
	return &breakerAnalyzer{inner: inner, breaker: breaker}
}

func (a *breakerAnalyzer) Analyze(ctx context.Context, text string) (model.EmotionMap, error) {
	var result model.EmotionMap
	err := a.breaker.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = a.inner.Analyze(ctx, text)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
