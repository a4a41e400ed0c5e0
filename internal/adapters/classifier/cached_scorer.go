package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/core"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/utils"
)

// CachedScorer decorates a ScoreProvider with a score cache. Classifier
// output is deterministic for a fixed model version, so a hit is as good as
// a call. Cache errors are logged and fall through to the underlying scorer.
type CachedScorer struct {
	inner         core.ScoreProvider
	cache         core.ScoreCache
	ttl           time.Duration
	modelVersion  string
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewCachedScorer creates a caching decorator around inner.
func NewCachedScorer(
	inner core.ScoreProvider,
	cache core.ScoreCache,
	ttl time.Duration,
	modelVersion string,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *CachedScorer {
	return &CachedScorer{
		inner:         inner,
		cache:         cache,
		ttl:           ttl,
		modelVersion:  modelVersion,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Score returns the cached probability for text when available, otherwise
// delegates to the underlying scorer and stores the result.
func (s *CachedScorer) Score(ctx context.Context, text string) (float64, error) {
	hash := s.hash(text)

	if entry, err := s.cache.Get(ctx, hash); err == nil {
		if entry.Model == s.modelVersion {
			s.logger.Debug("Score cache hit", zap.String("text_hash", hash))
			return entry.Score, nil
		}
		// Stale model version; drop the entry so it gets re-scored.
		if err := s.cache.Delete(ctx, hash); err != nil {
			s.logger.Warn("Failed to evict stale score entry", zap.Error(err))
		}
	}

	score, err := s.inner.Score(ctx, text)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	entry := &core.ScoreEntry{
		TextHash:  hash,
		Score:     score,
		Model:     s.modelVersion,
		ScoredAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.cache.Set(ctx, entry); err != nil {
		s.logger.Error("Failed to update score cache", zap.Error(err))
	}

	return score, nil
}

// hash returns the cache key for text: SHA-256 over the normalized form, so
// trivial whitespace or case differences share one entry.
func (s *CachedScorer) hash(text string) string {
	normalized := s.textProcessor.NormalizeForScoring(text)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
