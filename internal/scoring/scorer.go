package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/tastemash/compatibility-service/internal/domain"
	"github.com/tastemash/compatibility-service/internal/signature"
)

const maxScore = 100

// Score computes the symmetric compatibility of two users from their
// full libraries under a policy. The pair is canonicalized first, so
// Score(a,b) and Score(b,a) produce byte-identical results.
func Score(userA int64, libA []domain.LibraryEntry, userB int64, libB []domain.LibraryEntry, p Policy) (*domain.CompatibilityResult, error) {
	if userA > userB {
		userA, userB = userB, userA
		libA, libB = libB, libA
	}

	if len(libA) == 0 || len(libB) == 0 {
		return nil, domain.ErrInsufficientData
	}

	ratedA := ratedMap(libA)
	ratedB := ratedMap(libB)
	if len(ratedA) == 0 || len(ratedB) == 0 {
		return nil, domain.ErrInsufficientData
	}

	shared := sharedItems(ratedA, ratedB, p)

	// Overlap gate runs before any scoring.
	minShared := p.MinShared
	if minShared < 1 && !p.GenreFallback {
		minShared = 1
	}
	if len(shared) < minShared {
		return nil, domain.ErrInsufficientOverlap
	}

	result := &domain.CompatibilityResult{
		UserA:         userA,
		UserB:         userB,
		SharedItemIDs: shared,
		SharedCount:   len(shared),
		Policy:        p.Name,
		ComputedAt:    time.Now().UTC(),
	}

	if len(shared) == 0 {
		// Zero overlap under a fallback policy: genre similarity alone.
		sim := genreSimilarity(userA, libA, userB, libB)
		result.Score = roundScore(sim)
		result.Breakdown = domain.Breakdown{GenreFallback: true}
		return result, nil
	}

	ratingSim := ratingSimilarity(ratedA, ratedB, shared)
	setSim := jaccard(ratedA, ratedB) * maxScore

	result.Score = roundScore(ratingSim*p.RatingWeight + setSim*p.SetWeight)
	result.Breakdown = domain.Breakdown{
		RatingSimilarity: ratingSim,
		SetSimilarity:    setSim,
	}
	return result, nil
}

// ratedMap indexes a library by media ID, keeping rated entries only.
// Absence of a rating means "unrated", never zero.
func ratedMap(lib []domain.LibraryEntry) map[string]float64 {
	m := make(map[string]float64, len(lib))
	for _, e := range lib {
		if e.Rated() {
			m[e.MediaID] = *e.Rating
		}
	}
	return m
}

// sharedItems intersects the two rated sets, sorted for determinism.
// Under a liked-only policy both ratings must clear the threshold.
func sharedItems(a, b map[string]float64, p Policy) []string {
	shared := make([]string, 0)
	for id, ra := range a {
		rb, ok := b[id]
		if !ok {
			continue
		}
		if p.LikedOnly && (ra < p.LikedThreshold || rb < p.LikedThreshold) {
			continue
		}
		shared = append(shared, id)
	}
	sort.Strings(shared)
	return shared
}

// ratingSimilarity converts the mean absolute rating difference over
// the shared items to 0..100, clamped so it never goes negative.
func ratingSimilarity(a, b map[string]float64, shared []string) float64 {
	totalDiff := 0.0
	for _, id := range shared {
		totalDiff += math.Abs(a[id] - b[id])
	}
	avgDiff := totalDiff / float64(len(shared))
	sim := maxScore - avgDiff*10
	if sim < 0 {
		return 0
	}
	return sim
}

// jaccard is |intersection| / |union| over the full rated-item sets.
func jaccard(a, b map[string]float64) float64 {
	inter := 0
	for id := range a {
		if _, ok := b[id]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// genreSimilarity is the Jaccard of the two users' top-genre sets,
// scaled to 0..100. Symmetric by construction.
func genreSimilarity(userA int64, libA []domain.LibraryEntry, userB int64, libB []domain.LibraryEntry) float64 {
	topA := signature.Build(userA, libA).TopGenres
	topB := signature.Build(userB, libB).TopGenres
	if len(topA) == 0 && len(topB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(topA))
	for _, g := range topA {
		setA[g] = struct{}{}
	}
	inter := 0
	for _, g := range topB {
		if _, ok := setA[g]; ok {
			inter++
		}
	}
	union := len(topA) + len(topB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union) * maxScore
}

func roundScore(v float64) int {
	s := int(math.Round(v))
	if s < 0 {
		return 0
	}
	if s > maxScore {
		return maxScore
	}
	return s
}
