package analyze

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/evonota/evonota/internal/model"
)

// cachedAnalyzer memoizes results by text hash. Analysis is idempotent,
// so handing back a cached mapping for identical text saves a paid,
// rate-limited model call.
type cachedAnalyzer struct {
	inner Analyzer
	cache *expirable.LRU[string, model.EmotionMap]
}

func WithCache(inner Analyzer, size int, ttl time.Duration) Analyzer {
	if size <= 0 {
		return inner
	}
	return &cachedAnalyzer{
		inner: inner,
		cache: expirable.NewLRU[string, model.EmotionMap](size, nil, ttl),
	}
}

func (a *cachedAnalyzer) Analyze(ctx context.Context, text string) (model.EmotionMap, error) {
	key := cacheKey(text)
	if cached, ok := a.cache.Get(key); ok {
		return cloneMap(cached), nil
	}
	result, err := a.inner.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}
	a.cache.Add(key, cloneMap(result))
	return result, nil
}

func cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

func cloneMap(in model.EmotionMap) model.EmotionMap {
	out := make(model.EmotionMap, len(in))
	for name, score := range in {
		entities := make([]string, len(score.Entities))
		copy(entities, score.Entities)
		out[name] = model.EmotionScore{Percentage: score.Percentage, Entities: entities}
	}
	return out
}
