package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/tastemash/compatibility-service/internal/domain"
	"github.com/tastemash/compatibility-service/internal/metrics"
	"github.com/tastemash/compatibility-service/internal/ranking"
	"github.com/tastemash/compatibility-service/internal/scoring"
)

// TwinMatch is one taste-twin discovery hit.
type TwinMatch struct {
	PartnerID int64                       `json:"partner_id"`
	Result    *domain.CompatibilityResult `json:"result"`
}

// FindTasteTwins scores the caller against the candidate user pool
// under the twins policy and returns the best matches, highest first.
// Pairs below the overlap minimum are silently omitted, not errors:
// a thin twin list is an empty state, not a failure.
func (s *Service) FindTasteTwins(ctx context.Context, userID int64, limit int) ([]TwinMatch, error) {
	if limit <= 0 {
		limit = defaultTwinLimit
	} else if limit > maxTwinLimit {
		limit = maxTwinLimit
	}
	metrics.RankingRuns.WithLabelValues("twins").Inc()

	// The caller needs a usable library before any pair is attempted.
	if _, err := s.GetSignature(ctx, userID); err != nil {
		return nil, err
	}

	var candidateIDs []int64
	err := s.retry.Do(ctx, "fetch candidate users", func() error {
		var err error
		candidateIDs, err = s.store.GetCandidateUserIDs(ctx, userID, twinUserPoolSize)
		return err
	})
	if err != nil {
		return nil, err
	}

	twins := make([]TwinMatch, 0, len(candidateIDs))
	for _, partnerID := range candidateIDs {
		result, _, err := s.scorePair(ctx, userID, partnerID, scoring.PolicyTwins)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientOverlap) || errors.Is(err, domain.ErrInsufficientData) {
				continue
			}
			return nil, err
		}
		twins = append(twins, TwinMatch{PartnerID: partnerID, Result: result})
	}

	// Stable on pool order, so equal scores stay deterministic.
	sort.SliceStable(twins, func(i, j int) bool {
		return twins[i].Result.Score > twins[j].Result.Score
	})
	if len(twins) > limit {
		twins = twins[:limit]
	}
	return twins, nil
}

// NextBlindMatch picks the single best unmatched user for a blind
// date: 70% genre affinity, 30% personality distance. Previously
// matched partners are excluded; a found match is persisted so it will
// be excluded next time.
func (s *Service) NextBlindMatch(ctx context.Context, userID int64) (ranking.Result, error) {
	metrics.RankingRuns.WithLabelValues("blind_match").Inc()

	subject, err := s.GetSignature(ctx, userID)
	if err != nil {
		return ranking.Result{}, err
	}

	var partnerIDs []int64
	err = s.retry.Do(ctx, "fetch matched partners", func() error {
		var err error
		partnerIDs, err = s.store.GetMatchedPartnerIDs(ctx, userID, ranking.PolicyBlindMatch.Name)
		return err
	})
	if err != nil {
		return ranking.Result{}, err
	}
	exclude := make(map[string]struct{}, len(partnerIDs))
	for _, id := range partnerIDs {
		exclude[strconv.FormatInt(id, 10)] = struct{}{}
	}

	pool, err := s.candidateUserPool(ctx, userID)
	if err != nil {
		return ranking.Result{}, err
	}

	result := s.engine.Rank(subject, pool, exclude, ranking.PolicyBlindMatch)
	if !result.Found {
		return result, nil
	}

	partnerID, err := strconv.ParseInt(result.Best.CandidateID, 10, 64)
	if err != nil {
		return ranking.Result{}, err
	}
	record := &domain.CompatibilityResult{
		Policy:        ranking.PolicyBlindMatch.Name,
		Score:         result.Best.Score,
		SharedItemIDs: []string{},
		ComputedAt:    time.Now().UTC(),
	}
	record.UserA, record.UserB = domain.CanonicalPair(userID, partnerID)
	if err := s.retry.Do(ctx, "record blind match", func() error {
		return s.store.UpsertMatch(ctx, record)
	}); err != nil {
		return ranking.Result{}, err
	}

	return result, nil
}

// Roulette returns one random unseen item from the caller's top ten,
// so repeat spins do not keep surfacing the same title.
func (s *Service) Roulette(ctx context.Context, userID int64, mediaType domain.MediaType) (ranking.Result, error) {
	metrics.RankingRuns.WithLabelValues("roulette").Inc()

	subject, err := s.GetSignature(ctx, userID)
	if err != nil {
		return ranking.Result{}, err
	}

	pool, err := s.unseenMedia(ctx, userID, mediaType)
	if err != nil {
		return ranking.Result{}, err
	}

	return s.engine.Rank(subject, pool, nil, ranking.PolicyRoulette), nil
}

// Recommendations is the plain ranked list of unseen media.
func (s *Service) Recommendations(ctx context.Context, userID int64, mediaType domain.MediaType) (ranking.Result, error) {
	metrics.RankingRuns.WithLabelValues("item_rec").Inc()

	subject, err := s.GetSignature(ctx, userID)
	if err != nil {
		return ranking.Result{}, err
	}

	pool, err := s.unseenMedia(ctx, userID, mediaType)
	if err != nil {
		return ranking.Result{}, err
	}

	return s.engine.Rank(subject, pool, nil, ranking.PolicyItemRec), nil
}

// GroupConsensus ranks media unseen by every member by mean genre
// affinity across the whole group. Every member needs a usable
// signature; one empty library fails the request.
func (s *Service) GroupConsensus(ctx context.Context, memberIDs []int64) (ranking.Result, error) {
	if len(memberIDs) == 0 {
		return ranking.Result{}, domain.ErrInsufficientData
	}
	metrics.RankingRuns.WithLabelValues("consensus").Inc()

	members := make([]*domain.TasteSignature, 0, len(memberIDs))
	for _, id := range memberIDs {
		sig, err := s.GetSignature(ctx, id)
		if err != nil {
			return ranking.Result{}, err
		}
		members = append(members, sig)
	}

	var pool []domain.Candidate
	err := s.retry.Do(ctx, "fetch group unseen media", func() error {
		var err error
		pool, err = s.store.GetUnseenMediaForUsers(ctx, memberIDs, mediaPoolSize)
		return err
	})
	if err != nil {
		return ranking.Result{}, err
	}

	return s.engine.RankGroup(members, pool, nil, ranking.PolicyConsensus), nil
}

// Insights is the signature plus human-readable taste labels.
type Insights struct {
	Signature     *domain.TasteSignature `json:"signature"`
	DominantGenre string                 `json:"dominant_genre"`
	TasteProfile  string                 `json:"taste_profile"`  // niche | balanced | mainstream
	RangeProfile  string                 `json:"range_profile"`  // specialist | balanced | eclectic
	RatingStyle   string                 `json:"rating_style"`   // critic | balanced | enthusiast
}

func (s *Service) GetInsights(ctx context.Context, userID int64) (*Insights, error) {
	sig, err := s.GetSignature(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Insights{
		Signature:     sig,
		DominantGenre: sig.TopGenres[0],
		TasteProfile:  band(sig.MainstreamScore, "niche", "mainstream"),
		RangeProfile:  band(sig.DiversityScore, "specialist", "eclectic"),
		RatingStyle:   ratingStyle(sig.AvgRating),
	}, nil
}

func band(score int, low, high string) string {
	switch {
	case score <= 33:
		return low
	case score <= 66:
		return "balanced"
	default:
		return high
	}
}

func ratingStyle(avg float64) string {
	switch {
	case avg < 5.5:
		return "critic"
	case avg < 7.5:
		return "balanced"
	default:
		return "enthusiast"
	}
}

// candidateUserPool builds user candidates with signatures; users
// without a usable library are skipped.
func (s *Service) candidateUserPool(ctx context.Context, userID int64) ([]domain.Candidate, error) {
	var ids []int64
	err := s.retry.Do(ctx, "fetch candidate users", func() error {
		var err error
		ids, err = s.store.GetCandidateUserIDs(ctx, userID, twinUserPoolSize)
		return err
	})
	if err != nil {
		return nil, err
	}

	pool := make([]domain.Candidate, 0, len(ids))
	for _, id := range ids {
		sig, err := s.GetSignature(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientData) {
				continue
			}
			return nil, err
		}
		pool = append(pool, domain.Candidate{
			ID:        strconv.FormatInt(id, 10),
			Genres:    sig.TopGenres,
			Signature: sig,
		})
	}
	return pool, nil
}

func (s *Service) unseenMedia(ctx context.Context, userID int64, mediaType domain.MediaType) ([]domain.Candidate, error) {
	var pool []domain.Candidate
	err := s.retry.Do(ctx, "fetch unseen media", func() error {
		var err error
		pool, err = s.store.GetUnseenMedia(ctx, userID, mediaType, mediaPoolSize)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		log.Printf("[service] empty media pool for user %d", userID)
	}
	return pool, nil
}
