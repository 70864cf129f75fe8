package service

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/tastemash/compatibility-service/internal/cache"
	"github.com/tastemash/compatibility-service/internal/domain"
	"github.com/tastemash/compatibility-service/internal/metrics"
	"github.com/tastemash/compatibility-service/internal/ranking"
	"github.com/tastemash/compatibility-service/internal/retry"
	"github.com/tastemash/compatibility-service/internal/scoring"
	"github.com/tastemash/compatibility-service/internal/signature"
)

const (
	twinUserPoolSize = 100
	mediaPoolSize    = 100
	defaultTwinLimit = 10
	maxTwinLimit     = 50
)

// Store is everything the engine needs from the persistence layer:
// library rows, persisted match records, and candidate pools. The pgx
// repository satisfies it; tests use in-memory fakes.
type Store interface {
	EnsureUser(ctx context.Context, userID int64) error
	GetLibrary(ctx context.Context, userID int64) ([]domain.LibraryEntry, error)
	UpsertLibraryEntry(ctx context.Context, e domain.LibraryEntry) error

	GetMatch(ctx context.Context, userA, userB int64, policy string) (*domain.CompatibilityResult, error)
	UpsertMatch(ctx context.Context, result *domain.CompatibilityResult) error
	InvalidateMatches(ctx context.Context, userID int64) error
	GetMatchedPartnerIDs(ctx context.Context, userID int64, policy string) ([]int64, error)

	GetCandidateUserIDs(ctx context.Context, excludeUserID int64, limit int) ([]int64, error)
	GetUnseenMedia(ctx context.Context, userID int64, mediaType domain.MediaType, limit int) ([]domain.Candidate, error)
	GetUnseenMediaForUsers(ctx context.Context, userIDs []int64, limit int) ([]domain.Candidate, error)
}

type Options struct {
	SignatureTTL time.Duration
	PairTTL      time.Duration
	Retry        retry.Policy
}

type Service struct {
	store  Store
	cache  cache.Store
	engine *ranking.Engine
	retry  retry.Policy

	signatureTTL time.Duration
	pairTTL      time.Duration

	// recomputes counts full pairwise computations; cached and stored
	// results do not increment it.
	recomputes atomic.Int64
}

func NewService(store Store, cacheStore cache.Store, engine *ranking.Engine, opts Options) *Service {
	if opts.SignatureTTL <= 0 {
		opts.SignatureTTL = 5 * time.Minute
	}
	if opts.PairTTL <= 0 {
		opts.PairTTL = 10 * time.Minute
	}
	r := opts.Retry
	if r.Attempts == 0 {
		r = retry.Default()
	}
	if r.OnRetry == nil {
		r.OnRetry = func() { metrics.RetryAttempts.Inc() }
	}
	return &Service{
		store:        store,
		cache:        cacheStore,
		engine:       engine,
		retry:        r,
		signatureTTL: opts.SignatureTTL,
		pairTTL:      opts.PairTTL,
	}
}

// GetSignature builds (or reuses) a user's taste signature. An empty or
// fully-unrated library is refused rather than scored against.
func (s *Service) GetSignature(ctx context.Context, userID int64) (*domain.TasteSignature, error) {
	key := cache.SignatureKey(userID)
	if data, found, err := s.cache.Get(ctx, key); err != nil {
		log.Printf("[service] cache get error for %s: %v", key, err)
	} else if found {
		var sig domain.TasteSignature
		if err := json.Unmarshal(data, &sig); err == nil {
			metrics.CacheEvents.WithLabelValues("hit").Inc()
			return &sig, nil
		}
		log.Printf("[service] corrupt cache entry %s, recomputing", key)
	}
	metrics.CacheEvents.WithLabelValues("miss").Inc()

	lib, err := s.fetchLibrary(ctx, userID)
	if err != nil {
		return nil, err
	}

	sig := signature.Build(userID, lib)
	if sig.Empty() {
		return nil, domain.ErrInsufficientData
	}

	s.cachePut(ctx, key, sig, s.signatureTTL)
	return sig, nil
}

// MashResult pairs a compatibility result with whether it was served
// from the cache or store without recomputation.
type MashResult struct {
	Result   *domain.CompatibilityResult `json:"result"`
	CacheHit bool                        `json:"cache_hit"`
}

// MashScore is the general compatibility score between two users.
func (s *Service) MashScore(ctx context.Context, userA, userB int64) (*MashResult, error) {
	if err := s.ensureUsers(ctx, userA, userB); err != nil {
		return nil, err
	}
	result, cached, err := s.scorePair(ctx, userA, userB, scoring.PolicyMash)
	if err != nil {
		return nil, err
	}
	return &MashResult{Result: result, CacheHit: cached}, nil
}

// scorePair resolves one pairwise score: cache, then the persisted
// record if still fresh, then a full recomputation persisted via an
// atomic upsert on the canonical pair.
func (s *Service) scorePair(ctx context.Context, userA, userB int64, p scoring.Policy) (*domain.CompatibilityResult, bool, error) {
	key := cache.PairScoreKey(p.Name, userA, userB)

	if data, found, err := s.cache.Get(ctx, key); err != nil {
		log.Printf("[service] cache get error for %s: %v", key, err)
	} else if found {
		var result domain.CompatibilityResult
		if err := json.Unmarshal(data, &result); err == nil {
			metrics.CacheEvents.WithLabelValues("hit").Inc()
			metrics.PairScores.WithLabelValues(p.Name, "cached").Inc()
			return &result, true, nil
		}
		log.Printf("[service] corrupt cache entry %s, recomputing", key)
	}
	metrics.CacheEvents.WithLabelValues("miss").Inc()

	var stored *domain.CompatibilityResult
	err := s.retry.Do(ctx, "get match", func() error {
		var err error
		stored, err = s.store.GetMatch(ctx, userA, userB, p.Name)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if stored != nil && time.Since(stored.ComputedAt) < s.pairTTL {
		metrics.PairScores.WithLabelValues(p.Name, "stored").Inc()
		s.cachePut(ctx, key, stored, s.pairTTL)
		return stored, true, nil
	}

	libA, err := s.fetchLibrary(ctx, userA)
	if err != nil {
		return nil, false, err
	}
	libB, err := s.fetchLibrary(ctx, userB)
	if err != nil {
		return nil, false, err
	}

	result, err := scoring.Score(userA, libA, userB, libB, p)
	if err != nil {
		return nil, false, err
	}
	s.recomputes.Add(1)
	metrics.PairScores.WithLabelValues(p.Name, "computed").Inc()

	if err := s.retry.Do(ctx, "upsert match", func() error {
		return s.store.UpsertMatch(ctx, result)
	}); err != nil {
		return nil, false, err
	}

	s.cachePut(ctx, key, result, s.pairTTL)
	return result, false, nil
}

// AddLibraryEntry upserts one library row and invalidates every cached
// value derived from that user's library.
func (s *Service) AddLibraryEntry(ctx context.Context, e domain.LibraryEntry) error {
	if err := s.ensureUsers(ctx, e.UserID); err != nil {
		return err
	}
	if err := s.retry.Do(ctx, "upsert library entry", func() error {
		return s.store.UpsertLibraryEntry(ctx, e)
	}); err != nil {
		return err
	}
	if err := s.retry.Do(ctx, "invalidate matches", func() error {
		return s.store.InvalidateMatches(ctx, e.UserID)
	}); err != nil {
		return err
	}

	for _, pattern := range cache.UserPatterns(e.UserID) {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			log.Printf("[service] cache invalidation error for user %d: %v", e.UserID, err)
		}
	}
	return nil
}

func (s *Service) ensureUsers(ctx context.Context, userIDs ...int64) error {
	for _, id := range userIDs {
		uid := id
		if err := s.retry.Do(ctx, "ensure user", func() error {
			return s.store.EnsureUser(ctx, uid)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) fetchLibrary(ctx context.Context, userID int64) ([]domain.LibraryEntry, error) {
	if err := s.ensureUsers(ctx, userID); err != nil {
		return nil, err
	}
	var lib []domain.LibraryEntry
	err := s.retry.Do(ctx, "fetch library", func() error {
		var err error
		lib, err = s.store.GetLibrary(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// cachePut stores a JSON-encoded value. Cache failures only log; the
// cache is a pure optimization and every entry is recomputable.
func (s *Service) cachePut(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[service] marshal for cache %s: %v", key, err)
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		log.Printf("[service] cache set error for %s: %v", key, err)
	}
}
