package ranking

import (
	"math"
	"math/rand"
	"sort"

	"github.com/tastemash/compatibility-service/internal/domain"
)

const maxScore = 100

// Result is a ranking outcome. Found is false when the pool is empty
// after filtering: discovery features render an empty state for that,
// never an error.
type Result struct {
	Found  bool                    `json:"found"`
	Best   *domain.CandidateScore  `json:"best,omitempty"`
	Ranked []domain.CandidateScore `json:"ranked,omitempty"`
}

// Engine scores candidate pools against a subject signature. The rng
// drives random-among-top-K selection only; inject a seeded one in
// tests.
type Engine struct {
	rng *rand.Rand
}

func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{rng: rng}
}

// Rank filters, scores, sorts, and applies the policy's selection. The
// sort is stable on candidate insertion order, so identical inputs give
// identical output order.
func (e *Engine) Rank(subject *domain.TasteSignature, pool []domain.Candidate, exclude map[string]struct{}, p Policy) Result {
	scored := make([]domain.CandidateScore, 0, len(pool))
	for _, c := range pool {
		if _, skip := exclude[c.ID]; skip {
			continue
		}
		cs := e.scoreCandidate(subject, c, p)
		if cs.Score < p.MinScore {
			continue
		}
		scored = append(scored, cs)
	}

	return e.finalize(scored, p)
}

// RankGroup scores a pool for a whole group by averaging each
// candidate's score across every member signature. Matched genres are
// those covered by at least one member, in candidate order.
func (e *Engine) RankGroup(members []*domain.TasteSignature, pool []domain.Candidate, exclude map[string]struct{}, p Policy) Result {
	if len(members) == 0 {
		return Result{}
	}

	scored := make([]domain.CandidateScore, 0, len(pool))
	for _, c := range pool {
		if _, skip := exclude[c.ID]; skip {
			continue
		}

		total := 0.0
		predicted := 0.0
		anyMatch := make(map[string]struct{})
		for _, m := range members {
			genreScore, matched := genreOverlap(m.TopGenres, c.Genres)
			total += genreScore * p.GenreWeight
			predicted += predictRating(m.AvgRating, genreScore)
			for _, g := range matched {
				anyMatch[g] = struct{}{}
			}
		}

		matched := make([]string, 0, len(anyMatch))
		for _, g := range c.Genres {
			if _, ok := anyMatch[g]; ok {
				matched = append(matched, g)
			}
		}

		n := float64(len(members))
		cs := domain.CandidateScore{
			CandidateID:     c.ID,
			Score:           roundScore(total / n),
			MatchedGenres:   matched,
			PredictedRating: math.Round(predicted/n*10) / 10,
		}
		if cs.Score < p.MinScore {
			continue
		}
		scored = append(scored, cs)
	}

	return e.finalize(scored, p)
}

// finalize sorts (stable, so ties keep insertion order) and applies the
// selection policy.
func (e *Engine) finalize(scored []domain.CandidateScore, p Policy) Result {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) == 0 {
		return Result{}
	}

	switch p.Selection {
	case SelectBest:
		return Result{Found: true, Best: &scored[0]}
	case SelectRandomTopK:
		k := p.TopK
		if k <= 0 || k > len(scored) {
			k = len(scored)
		}
		pick := scored[e.rng.Intn(k)]
		return Result{Found: true, Best: &pick}
	default:
		if p.TopK > 0 && len(scored) > p.TopK {
			scored = scored[:p.TopK]
		}
		return Result{Found: true, Ranked: scored}
	}
}

func (e *Engine) scoreCandidate(subject *domain.TasteSignature, c domain.Candidate, p Policy) domain.CandidateScore {
	genreScore, matched := genreOverlap(subject.TopGenres, c.Genres)

	combined := genreScore * p.GenreWeight
	if p.PersonalityWeight > 0 && c.Signature != nil {
		combined += personalitySimilarity(subject, c.Signature) * p.PersonalityWeight
	}

	return domain.CandidateScore{
		CandidateID:     c.ID,
		Score:           roundScore(combined),
		MatchedGenres:   matched,
		PredictedRating: predictRating(subject.AvgRating, genreScore),
	}
}

// genreOverlap scores how much of the subject's top genres a candidate
// covers. Matched genres come back in the subject's top-genre order.
func genreOverlap(topGenres []string, candidateGenres []string) (float64, []string) {
	if len(topGenres) == 0 {
		return 0, nil
	}

	candidate := make(map[string]struct{}, len(candidateGenres))
	for _, g := range candidateGenres {
		candidate[g] = struct{}{}
	}

	var matched []string
	for _, g := range topGenres {
		if _, ok := candidate[g]; ok {
			matched = append(matched, g)
		}
	}

	return float64(len(matched)) / float64(len(topGenres)) * maxScore, matched
}

// personalitySimilarity inverts the trait distance between two user
// signatures: mainstream, diversity, and an enthusiasm proxy from the
// average rating, each on a 0..100 scale.
func personalitySimilarity(a, b *domain.TasteSignature) float64 {
	diff := math.Abs(float64(a.MainstreamScore-b.MainstreamScore)) +
		math.Abs(float64(a.DiversityScore-b.DiversityScore)) +
		math.Abs(a.AvgRating*10-b.AvgRating*10)

	sim := maxScore - diff/3
	if sim < 0 {
		return 0
	}
	return sim
}

// predictRating anchors at the neutral midpoint and moves toward the
// subject's own average as genre affinity grows: a full genre match
// predicts they rate it like their usual favorite territory.
func predictRating(avgRating, genreScore float64) float64 {
	predicted := domain.NeutralRating + (avgRating-domain.NeutralRating)*genreScore/maxScore
	if predicted < 0 {
		return 0
	}
	if predicted > 10 {
		return 10
	}
	return math.Round(predicted*10) / 10
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
