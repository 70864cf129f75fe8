package ranking

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/tastemash/compatibility-service/internal/domain"
)

func testEngine() *Engine {
	return NewEngine(rand.New(rand.NewSource(1)))
}

func subjectSignature() *domain.TasteSignature {
	return &domain.TasteSignature{
		UserID:    1,
		TopGenres: []string{"Drama", "Comedy"},
		AvgRating: 8,
	}
}

func TestRankedListScoresAndFiltering(t *testing.T) {
	pool := []domain.Candidate{
		{ID: "a", Genres: []string{"Drama"}},
		{ID: "b", Genres: []string{"Action"}},
		{ID: "c", Genres: []string{"Drama", "Comedy"}},
	}

	p := PolicyItemRec
	p.MinScore = 50

	result := testEngine().Rank(subjectSignature(), pool, nil, p)

	if !result.Found {
		t.Fatal("expected candidates")
	}
	// Overlap scores 50, 0, 100; the 0-scored candidate drops.
	if len(result.Ranked) != 2 {
		t.Fatalf("expected 2 ranked candidates, got %d", len(result.Ranked))
	}
	if result.Ranked[0].CandidateID != "c" || result.Ranked[0].Score != 100 {
		t.Errorf("expected c at 100 first, got %s at %d", result.Ranked[0].CandidateID, result.Ranked[0].Score)
	}
	if result.Ranked[1].CandidateID != "a" || result.Ranked[1].Score != 50 {
		t.Errorf("expected a at 50 second, got %s at %d", result.Ranked[1].CandidateID, result.Ranked[1].Score)
	}
}

func TestRankIsDeterministic(t *testing.T) {
	// Three candidates tied at the same score: insertion order must
	// hold across repeated runs.
	pool := []domain.Candidate{
		{ID: "first", Genres: []string{"Drama"}},
		{ID: "second", Genres: []string{"Drama"}},
		{ID: "third", Genres: []string{"Drama"}},
	}

	p := PolicyItemRec
	p.MinScore = 0

	var prev []string
	for run := 0; run < 5; run++ {
		result := testEngine().Rank(subjectSignature(), pool, nil, p)
		ids := make([]string, 0, len(result.Ranked))
		for _, cs := range result.Ranked {
			ids = append(ids, cs.CandidateID)
		}
		if prev != nil && !reflect.DeepEqual(ids, prev) {
			t.Fatalf("order changed between runs: %v vs %v", prev, ids)
		}
		prev = ids
	}

	if !reflect.DeepEqual(prev, []string{"first", "second", "third"}) {
		t.Errorf("ties must keep insertion order, got %v", prev)
	}
}

func TestExclusionSetFiltersSeenCandidates(t *testing.T) {
	pool := []domain.Candidate{
		{ID: "seen", Genres: []string{"Drama", "Comedy"}},
		{ID: "fresh", Genres: []string{"Drama"}},
	}
	exclude := map[string]struct{}{"seen": {}}

	result := testEngine().Rank(subjectSignature(), pool, exclude, PolicyItemRec)

	if !result.Found {
		t.Fatal("expected a candidate")
	}
	if len(result.Ranked) != 1 || result.Ranked[0].CandidateID != "fresh" {
		t.Errorf("expected only fresh, got %v", result.Ranked)
	}
}

func TestEmptyPoolIsNoCandidateNotError(t *testing.T) {
	pool := []domain.Candidate{
		{ID: "a", Genres: []string{"Horror"}},
	}

	result := testEngine().Rank(subjectSignature(), pool, nil, PolicyItemRec)

	if result.Found {
		t.Error("expected an explicit no-candidate result")
	}
	if result.Best != nil || len(result.Ranked) != 0 {
		t.Errorf("no-candidate result should be empty, got %+v", result)
	}
}

func TestSelectBestReturnsSingleTopCandidate(t *testing.T) {
	pool := []domain.Candidate{
		{ID: "half", Genres: []string{"Drama"}},
		{ID: "full", Genres: []string{"Drama", "Comedy"}},
	}

	p := PolicyItemRec
	p.Selection = SelectBest

	result := testEngine().Rank(subjectSignature(), pool, nil, p)

	if !result.Found || result.Best == nil {
		t.Fatal("expected a best candidate")
	}
	if result.Best.CandidateID != "full" {
		t.Errorf("expected full, got %s", result.Best.CandidateID)
	}
	if len(result.Ranked) != 0 {
		t.Error("best selection should not carry the full list")
	}
}

func TestRandomTopKStaysInsideTopK(t *testing.T) {
	pool := []domain.Candidate{
		{ID: "top1", Genres: []string{"Drama", "Comedy"}},
		{ID: "top2", Genres: []string{"Drama", "Comedy"}},
		{ID: "low", Genres: []string{"Drama"}},
	}

	p := PolicyRoulette
	p.TopK = 2
	p.MinScore = 0

	engine := testEngine()
	for i := 0; i < 20; i++ {
		result := engine.Rank(subjectSignature(), pool, nil, p)
		if !result.Found || result.Best == nil {
			t.Fatal("expected a pick")
		}
		if result.Best.CandidateID == "low" {
			t.Fatal("random selection left the top K")
		}
	}
}

func TestPersonalityBlendRewardsSimilarTraits(t *testing.T) {
	subject := &domain.TasteSignature{
		UserID:          1,
		TopGenres:       []string{"Drama"},
		AvgRating:       8,
		MainstreamScore: 60,
		DiversityScore:  40,
	}
	alike := &domain.TasteSignature{
		UserID: 2, AvgRating: 8, MainstreamScore: 60, DiversityScore: 40,
	}
	opposite := &domain.TasteSignature{
		UserID: 3, AvgRating: 1, MainstreamScore: 0, DiversityScore: 100,
	}

	pool := []domain.Candidate{
		{ID: "opposite", Genres: []string{"Drama"}, Signature: opposite},
		{ID: "alike", Genres: []string{"Drama"}, Signature: alike},
	}

	p := PolicyBlindMatch
	result := testEngine().Rank(subject, pool, nil, p)

	if !result.Found || result.Best == nil {
		t.Fatal("expected a match")
	}
	if result.Best.CandidateID != "alike" {
		t.Errorf("expected the similar user to win, got %s", result.Best.CandidateID)
	}
}

func TestPredictedRatingTracksGenreAffinity(t *testing.T) {
	pool := []domain.Candidate{
		{ID: "full", Genres: []string{"Drama", "Comedy"}},
		{ID: "none", Genres: []string{"Horror"}},
	}

	p := PolicyItemRec
	p.MinScore = 0

	result := testEngine().Rank(subjectSignature(), pool, nil, p)

	if len(result.Ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(result.Ranked))
	}
	// Full match predicts the subject's own average; no match falls to
	// the neutral midpoint.
	if result.Ranked[0].PredictedRating != 8.0 {
		t.Errorf("expected 8.0 for full match, got %f", result.Ranked[0].PredictedRating)
	}
	if result.Ranked[1].PredictedRating != domain.NeutralRating {
		t.Errorf("expected neutral for no match, got %f", result.Ranked[1].PredictedRating)
	}
}

func TestRankGroupAveragesAcrossMembers(t *testing.T) {
	members := []*domain.TasteSignature{
		{UserID: 1, TopGenres: []string{"Drama"}, AvgRating: 8},
		{UserID: 2, TopGenres: []string{"Action"}, AvgRating: 6},
	}
	pool := []domain.Candidate{
		{ID: "split", Genres: []string{"Drama"}},      // 100 for one, 0 for the other
		{ID: "both", Genres: []string{"Drama", "Action"}}, // 100 for both
	}

	result := testEngine().RankGroup(members, pool, nil, PolicyConsensus)

	if !result.Found || len(result.Ranked) != 2 {
		t.Fatalf("expected 2 ranked, got %+v", result)
	}
	if result.Ranked[0].CandidateID != "both" || result.Ranked[0].Score != 100 {
		t.Errorf("expected both at 100 first, got %s at %d", result.Ranked[0].CandidateID, result.Ranked[0].Score)
	}
	if result.Ranked[1].CandidateID != "split" || result.Ranked[1].Score != 50 {
		t.Errorf("expected split at 50, got %s at %d", result.Ranked[1].CandidateID, result.Ranked[1].Score)
	}
}

func TestMatchedGenresFollowSubjectOrder(t *testing.T) {
	pool := []domain.Candidate{
		{ID: "c", Genres: []string{"Comedy", "Drama"}},
	}

	result := testEngine().Rank(subjectSignature(), pool, nil, PolicyItemRec)

	if !result.Found {
		t.Fatal("expected a candidate")
	}
	want := []string{"Drama", "Comedy"}
	if !reflect.DeepEqual(result.Ranked[0].MatchedGenres, want) {
		t.Errorf("expected matched genres %v, got %v", want, result.Ranked[0].MatchedGenres)
	}
}
