package classifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/adapters/cache"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/utils"
)

type countingScorer struct {
	score float64
	calls int
}

func (s *countingScorer) Score(ctx context.Context, text string) (float64, error) {
	s.calls++
	return s.score, nil
}

func newCachedScorerForTest(t *testing.T, inner *countingScorer, model string) (*CachedScorer, *cache.MemoryCache) {
	t.Helper()
	logger := zap.NewNop()
	memCache := cache.NewMemoryCache(logger, time.Hour)
	t.Cleanup(memCache.Stop)

	scorer := NewCachedScorer(inner, memCache, time.Hour, model, logger, utils.NewTextProcessor(logger))
	return scorer, memCache
}

func TestCachedScorerHitsCacheOnSecondCall(t *testing.T) {
	inner := &countingScorer{score: 0.42}
	scorer, _ := newCachedScorerForTest(t, inner, "tfidf_lr_v1")

	ctx := context.Background()
	first, err := scorer.Score(ctx, "hello there friend")
	require.NoError(t, err)
	second, err := scorer.Score(ctx, "hello there friend")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls, "the second call must be served from cache")
}

func TestCachedScorerNormalizesBeforeHashing(t *testing.T) {
	inner := &countingScorer{score: 0.42}
	scorer, _ := newCachedScorerForTest(t, inner, "tfidf_lr_v1")

	ctx := context.Background()
	_, err := scorer.Score(ctx, "Hello   There\nFriend")
	require.NoError(t, err)
	_, err = scorer.Score(ctx, "hello there friend")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls, "case and whitespace variants share one cache entry")
}

func TestCachedScorerEvictsStaleModelEntries(t *testing.T) {
	logger := zap.NewNop()
	memCache := cache.NewMemoryCache(logger, time.Hour)
	t.Cleanup(memCache.Stop)
	textProcessor := utils.NewTextProcessor(logger)

	ctx := context.Background()
	oldInner := &countingScorer{score: 0.3}
	oldScorer := NewCachedScorer(oldInner, memCache, time.Hour, "tfidf_lr_v1", logger, textProcessor)
	_, err := oldScorer.Score(ctx, "hello there friend")
	require.NoError(t, err)

	// A scorer backed by a newer model must not trust the old entry.
	newInner := &countingScorer{score: 0.7}
	newScorer := NewCachedScorer(newInner, memCache, time.Hour, "tfidf_lr_v2", logger, textProcessor)
	score, err := newScorer.Score(ctx, "hello there friend")
	require.NoError(t, err)

	assert.Equal(t, 0.7, score)
	assert.Equal(t, 1, newInner.calls)
}
