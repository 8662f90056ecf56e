package extract

import (
	"context"

	"github.com/evonota/evonota/internal/resilience"
)

type breakerExtractor struct {
	inner   Extractor
	breaker *resilience.Breaker
}

// WithBreaker guards an extractor with a circuit breaker. A nil breaker
// returns the extractor unchanged.
func WithBreaker(inner Extractor, breaker *resilience.Breaker) Extractor {
	if breaker == nil {
		return inner
	}
	return &breakerExtractor{inner: inner, breaker: breaker}
}

func (e *breakerExtractor) Kind() string {
	return e.inner.Kind()
}

func (e *breakerExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	var result *Result
	err := e.breaker.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = e.inner.Extract(ctx, in)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
