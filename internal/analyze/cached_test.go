package analyze

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evonota/evonota/internal/model"
)

type countingAnalyzer struct {
	calls  int
	result model.EmotionMap
	err    error
}

func (a *countingAnalyzer) Analyze(ctx context.Context, text string) (model.EmotionMap, error) {
	a.calls++
	return a.result, a.err
}

func TestCachedAnalyzer_ReusesResult(t *testing.T) {
	inner := &countingAnalyzer{result: model.EmotionMap{
		"calma": {Percentage: 70, Entities: []string{"respiracion"}},
	}}
	cached := WithCache(inner, 16, time.Minute)

	first, err := cached.Analyze(context.Background(), "el paciente esta tranquilo")
	require.NoError(t, err)
	second, err := cached.Analyze(context.Background(), "el paciente esta tranquilo")
	require.NoError(t, err)

	require.Equal(t, 1, inner.calls)
	require.Equal(t, first, second)

	// Mutating a returned mapping must not poison the cache.
	first["calma"].Entities[0] = "mutated"
	third, err := cached.Analyze(context.Background(), "el paciente esta tranquilo")
	require.NoError(t, err)
	require.Equal(t, []string{"respiracion"}, third["calma"].Entities)
}

func TestCachedAnalyzer_DistinctTexts(t *testing.T) {
	inner := &countingAnalyzer{result: model.EmotionMap{}}
	cached := WithCache(inner, 16, time.Minute)

	_, err := cached.Analyze(context.Background(), "texto uno")
	require.NoError(t, err)
	_, err = cached.Analyze(context.Background(), "texto dos")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}
