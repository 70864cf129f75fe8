package signature

import (
	"sort"

	"github.com/tastemash/compatibility-service/internal/domain"
)

const (
	topGenreLimit      = 10
	mainstreamPerCount = 10
	diversityPerGenre  = 5
	maxDerivedScore    = 100
)

// Build reduces a user's full library into a taste signature. An empty
// library yields an empty signature (histogram nil-safe, avg at the
// neutral midpoint); callers that need a usable signature must check
// Empty() and refuse with domain.ErrInsufficientData.
func Build(userID int64, entries []domain.LibraryEntry) *domain.TasteSignature {
	histogram := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0

	ratingSum := 0.0
	ratedCount := 0

	for _, e := range entries {
		for _, g := range e.Genres {
			if _, ok := histogram[g]; !ok {
				firstSeen[g] = order
				order++
			}
			histogram[g]++
		}
		if e.Rated() {
			ratingSum += *e.Rating
			ratedCount++
		}
	}

	avg := domain.NeutralRating
	if ratedCount > 0 {
		avg = ratingSum / float64(ratedCount)
	}

	top := topGenres(histogram, firstSeen)

	mainstream := 0
	if len(top) > 0 {
		mainstream = clampScore(histogram[top[0]] * mainstreamPerCount)
	}
	diversity := 0
	if len(histogram) > 0 {
		diversity = clampScore(len(histogram) * diversityPerGenre)
	}

	return &domain.TasteSignature{
		UserID:          userID,
		GenreHistogram:  histogram,
		TopGenres:       top,
		AvgRating:       avg,
		MainstreamScore: mainstream,
		DiversityScore:  diversity,
	}
}

// topGenres sorts by count descending, ties broken by the order a genre
// was first encountered, truncated to the top 10.
func topGenres(histogram map[string]int, firstSeen map[string]int) []string {
	genres := make([]string, 0, len(histogram))
	for g := range histogram {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool {
		ci, cj := histogram[genres[i]], histogram[genres[j]]
		if ci != cj {
			return ci > cj
		}
		return firstSeen[genres[i]] < firstSeen[genres[j]]
	})
	if len(genres) > topGenreLimit {
		genres = genres[:topGenreLimit]
	}
	return genres
}

func clampScore(v int) int {
	if v > maxDerivedScore {
		return maxDerivedScore
	}
	return v
}
