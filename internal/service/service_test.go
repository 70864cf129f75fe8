package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/tastemash/compatibility-service/internal/cache"
	"github.com/tastemash/compatibility-service/internal/domain"
	"github.com/tastemash/compatibility-service/internal/ranking"
	"github.com/tastemash/compatibility-service/internal/retry"
)

// fakeStore keeps everything in maps; failures are injected per test.
type fakeStore struct {
	libraries map[int64][]domain.LibraryEntry
	matches   map[string]*domain.CompatibilityResult
	media     []domain.Candidate

	libraryErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		libraries: make(map[int64][]domain.LibraryEntry),
		matches:   make(map[string]*domain.CompatibilityResult),
	}
}

func matchKey(a, b int64, policy string) string {
	return domain.PairKey(a, b) + ":" + policy
}

func (f *fakeStore) EnsureUser(_ context.Context, userID int64) error {
	if _, ok := f.libraries[userID]; !ok {
		return domain.ErrUserNotFound
	}
	return nil
}

func (f *fakeStore) GetLibrary(_ context.Context, userID int64) ([]domain.LibraryEntry, error) {
	if f.libraryErr != nil {
		return nil, f.libraryErr
	}
	return f.libraries[userID], nil
}

func (f *fakeStore) UpsertLibraryEntry(_ context.Context, e domain.LibraryEntry) error {
	lib := f.libraries[e.UserID]
	for i := range lib {
		if lib[i].MediaID == e.MediaID {
			lib[i] = e
			return nil
		}
	}
	f.libraries[e.UserID] = append(lib, e)
	return nil
}

func (f *fakeStore) GetMatch(_ context.Context, a, b int64, policy string) (*domain.CompatibilityResult, error) {
	return f.matches[matchKey(a, b, policy)], nil
}

func (f *fakeStore) UpsertMatch(_ context.Context, result *domain.CompatibilityResult) error {
	f.matches[matchKey(result.UserA, result.UserB, result.Policy)] = result
	return nil
}

func (f *fakeStore) InvalidateMatches(_ context.Context, userID int64) error {
	for _, m := range f.matches {
		if m.UserA == userID || m.UserB == userID {
			m.ComputedAt = time.Unix(0, 0)
		}
	}
	return nil
}

func (f *fakeStore) GetMatchedPartnerIDs(_ context.Context, userID int64, policy string) ([]int64, error) {
	var ids []int64
	for _, m := range f.matches {
		if m.Policy != policy {
			continue
		}
		if m.UserA == userID {
			ids = append(ids, m.UserB)
		} else if m.UserB == userID {
			ids = append(ids, m.UserA)
		}
	}
	return ids, nil
}

func (f *fakeStore) GetCandidateUserIDs(_ context.Context, excludeUserID int64, limit int) ([]int64, error) {
	var ids []int64
	for id := int64(1); id <= int64(len(f.libraries))+10 && len(ids) < limit; id++ {
		if id == excludeUserID {
			continue
		}
		if _, ok := f.libraries[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) GetUnseenMedia(_ context.Context, userID int64, _ domain.MediaType, _ int) ([]domain.Candidate, error) {
	owned := make(map[string]struct{})
	for _, e := range f.libraries[userID] {
		owned[e.MediaID] = struct{}{}
	}
	var out []domain.Candidate
	for _, c := range f.media {
		if _, ok := owned[c.ID]; !ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) GetUnseenMediaForUsers(_ context.Context, userIDs []int64, _ int) ([]domain.Candidate, error) {
	owned := make(map[string]struct{})
	for _, id := range userIDs {
		for _, e := range f.libraries[id] {
			owned[e.MediaID] = struct{}{}
		}
	}
	var out []domain.Candidate
	for _, c := range f.media {
		if _, ok := owned[c.ID]; !ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// brokenCache fails every operation; the service must degrade to
// recomputation, never to an error.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}
func (brokenCache) Delete(context.Context, string) error         { return errors.New("cache down") }
func (brokenCache) DeletePattern(context.Context, string) error  { return errors.New("cache down") }
func (brokenCache) Clear(context.Context) error                  { return errors.New("cache down") }

func rated(v float64) *float64 { return &v }

func seedTwinPair(store *fakeStore) {
	store.libraries[1] = []domain.LibraryEntry{
		{UserID: 1, MediaID: "x", Rating: rated(9), Genres: []string{"Drama"}},
		{UserID: 1, MediaID: "y", Rating: rated(8), Genres: []string{"Drama", "Mystery"}},
		{UserID: 1, MediaID: "z", Rating: rated(7), Genres: []string{"Comedy"}},
	}
	store.libraries[2] = []domain.LibraryEntry{
		{UserID: 2, MediaID: "x", Rating: rated(8), Genres: []string{"Drama"}},
		{UserID: 2, MediaID: "y", Rating: rated(9), Genres: []string{"Drama", "Mystery"}},
		{UserID: 2, MediaID: "w", Rating: rated(6), Genres: []string{"Action"}},
	}
}

func newTestService(t *testing.T, store Store, c cache.Store) *Service {
	t.Helper()
	if c == nil {
		mem := cache.NewMemory(time.Minute, time.Hour)
		t.Cleanup(mem.Stop)
		c = mem
	}
	engine := ranking.NewEngine(rand.New(rand.NewSource(1)))
	return NewService(store, c, engine, Options{
		Retry: retry.Policy{Attempts: 2, Step: time.Millisecond},
	})
}

func TestMashScoreComputesAndPersists(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	svc := newTestService(t, store, nil)

	result, err := svc.MashScore(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("mash score: %v", err)
	}

	if result.CacheHit {
		t.Error("first call cannot be a cache hit")
	}
	if result.Result.Score != 74 {
		t.Errorf("expected score 74, got %d", result.Result.Score)
	}
	if store.matches[matchKey(1, 2, "mash")] == nil {
		t.Error("result was not persisted")
	}
}

func TestMashScoreIdempotentWithinTTL(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	first, err := svc.MashScore(ctx, 1, 2)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.MashScore(ctx, 2, 1) // reversed argument order
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if !second.CacheHit {
		t.Error("second call within TTL should be a cache hit")
	}
	if first.Result.Score != second.Result.Score {
		t.Errorf("scores differ: %d vs %d", first.Result.Score, second.Result.Score)
	}
	if got := svc.recomputes.Load(); got != 1 {
		t.Errorf("expected exactly 1 recomputation, got %d", got)
	}
}

func TestMashScoreReusesFreshStoredRecord(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	store.matches[matchKey(1, 2, "mash")] = &domain.CompatibilityResult{
		UserA: 1, UserB: 2, Policy: "mash", Score: 74,
		ComputedAt: time.Now().UTC(),
	}
	svc := newTestService(t, store, nil)

	result, err := svc.MashScore(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("mash score: %v", err)
	}
	if !result.CacheHit {
		t.Error("fresh stored record should count as a hit")
	}
	if got := svc.recomputes.Load(); got != 0 {
		t.Errorf("expected no recomputation, got %d", got)
	}
}

func TestMashScoreRecomputesStaleStoredRecord(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	store.matches[matchKey(1, 2, "mash")] = &domain.CompatibilityResult{
		UserA: 1, UserB: 2, Policy: "mash", Score: 1,
		ComputedAt: time.Now().UTC().Add(-time.Hour),
	}
	svc := newTestService(t, store, nil)

	result, err := svc.MashScore(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("mash score: %v", err)
	}
	if result.CacheHit {
		t.Error("stale record must be recomputed")
	}
	if result.Result.Score != 74 {
		t.Errorf("expected recomputed 74, got %d", result.Result.Score)
	}
}

func TestBrokenCacheDegradesToRecomputation(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	svc := newTestService(t, store, brokenCache{})
	ctx := context.Background()

	if _, err := svc.MashScore(ctx, 1, 2); err != nil {
		t.Fatalf("cache failures must not surface: %v", err)
	}

	// Without a cache the stored record still prevents recomputation.
	second, err := svc.MashScore(ctx, 1, 2)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !second.CacheHit {
		t.Error("fresh stored record should serve the second call")
	}
	if got := svc.recomputes.Load(); got != 1 {
		t.Errorf("expected 1 recomputation, got %d", got)
	}
}

func TestMashScoreUnknownUser(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	svc := newTestService(t, store, nil)

	_, err := svc.MashScore(context.Background(), 1, 99)
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetSignatureRefusesEmptyLibrary(t *testing.T) {
	store := newFakeStore()
	store.libraries[7] = nil
	svc := newTestService(t, store, nil)

	_, err := svc.GetSignature(context.Background(), 7)
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestAddLibraryEntryInvalidatesCachedResults(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	if _, err := svc.MashScore(ctx, 1, 2); err != nil {
		t.Fatalf("prime: %v", err)
	}

	err := svc.AddLibraryEntry(ctx, domain.LibraryEntry{
		UserID: 1, MediaType: domain.MediaMovie, MediaID: "w",
		Rating: rated(9), Genres: []string{"Action"},
	})
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}

	result, err := svc.MashScore(ctx, 1, 2)
	if err != nil {
		t.Fatalf("rescore: %v", err)
	}
	if result.CacheHit {
		t.Error("library change must force recomputation")
	}
	if got := svc.recomputes.Load(); got != 2 {
		t.Errorf("expected 2 recomputations, got %d", got)
	}
}

func TestFindTasteTwinsOmitsThinPairs(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	// User 3 shares nothing with user 1: silently omitted, not an error.
	store.libraries[3] = []domain.LibraryEntry{
		{UserID: 3, MediaID: "q", Rating: rated(9), Genres: []string{"Horror"}},
	}
	// User 4 likes the same three items.
	store.libraries[4] = []domain.LibraryEntry{
		{UserID: 4, MediaID: "x", Rating: rated(9), Genres: []string{"Drama"}},
		{UserID: 4, MediaID: "y", Rating: rated(8), Genres: []string{"Drama", "Mystery"}},
		{UserID: 4, MediaID: "z", Rating: rated(8), Genres: []string{"Comedy"}},
	}

	svc := newTestService(t, store, nil)
	twins, err := svc.FindTasteTwins(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("twins: %v", err)
	}

	if len(twins) != 1 {
		t.Fatalf("expected 1 twin, got %d", len(twins))
	}
	if twins[0].PartnerID != 4 {
		t.Errorf("expected user 4, got %d", twins[0].PartnerID)
	}
}

func TestBlindMatchPersistsAndExcludesPriorPartners(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	// User 4 covers all three of user 1's top genres, user 2 only two:
	// the first spin must pick 4, the second falls back to 2.
	store.libraries[4] = []domain.LibraryEntry{
		{UserID: 4, MediaID: "x", Rating: rated(9), Genres: []string{"Drama"}},
		{UserID: 4, MediaID: "y", Rating: rated(8), Genres: []string{"Drama", "Mystery"}},
		{UserID: 4, MediaID: "z", Rating: rated(8), Genres: []string{"Comedy"}},
	}

	svc := newTestService(t, store, nil)
	ctx := context.Background()

	first, err := svc.NextBlindMatch(ctx, 1)
	if err != nil {
		t.Fatalf("first blind match: %v", err)
	}
	if !first.Found || first.Best == nil {
		t.Fatal("expected a first match")
	}
	if first.Best.CandidateID != "4" {
		t.Errorf("expected user 4 as best match, got %s", first.Best.CandidateID)
	}
	rec := store.matches[matchKey(1, 4, "blind_match")]
	if rec == nil {
		t.Fatal("chosen match was not persisted")
	}
	if len(rec.SharedItemIDs) != 0 {
		t.Errorf("blind match record must not carry shared items, got %v", rec.SharedItemIDs)
	}

	second, err := svc.NextBlindMatch(ctx, 1)
	if err != nil {
		t.Fatalf("second blind match: %v", err)
	}
	if !second.Found || second.Best == nil {
		t.Fatal("expected a second match")
	}
	if second.Best.CandidateID == first.Best.CandidateID {
		t.Error("prior partner must never come back")
	}
	if second.Best.CandidateID != "2" {
		t.Errorf("expected user 2 as second match, got %s", second.Best.CandidateID)
	}

	third, err := svc.NextBlindMatch(ctx, 1)
	if err != nil {
		t.Fatalf("third blind match: %v", err)
	}
	if third.Found {
		t.Error("exhausted candidate pool must yield an explicit no-candidate result")
	}
}

func TestRouletteEmptyPoolIsNoCandidate(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	svc := newTestService(t, store, nil)

	result, err := svc.Roulette(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("roulette: %v", err)
	}
	if result.Found {
		t.Error("empty pool must yield an explicit no-candidate result")
	}
}

func TestRoulettePicksFromUnseenMedia(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	store.media = []domain.Candidate{
		{ID: "x", Genres: []string{"Drama"}}, // already owned by user 1
		{ID: "m1", Genres: []string{"Drama", "Mystery"}},
		{ID: "m2", Genres: []string{"Drama"}},
	}
	svc := newTestService(t, store, nil)

	result, err := svc.Roulette(context.Background(), 1, domain.MediaMovie)
	if err != nil {
		t.Fatalf("roulette: %v", err)
	}
	if !result.Found || result.Best == nil {
		t.Fatal("expected a pick")
	}
	if result.Best.CandidateID == "x" {
		t.Error("owned media must never come back")
	}
}

func TestGroupConsensusFailsOnMemberWithoutData(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	store.libraries[5] = nil

	svc := newTestService(t, store, nil)
	_, err := svc.GroupConsensus(context.Background(), []int64{1, 5})
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestGroupConsensusRanksForAllMembers(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	store.media = []domain.Candidate{
		{ID: "g1", Genres: []string{"Drama", "Mystery"}},
		{ID: "g2", Genres: []string{"Horror"}},
	}

	svc := newTestService(t, store, nil)
	result, err := svc.GroupConsensus(context.Background(), []int64{1, 2})
	if err != nil {
		t.Fatalf("consensus: %v", err)
	}
	if !result.Found || len(result.Ranked) == 0 {
		t.Fatal("expected ranked output")
	}
	if result.Ranked[0].CandidateID != "g1" {
		t.Errorf("expected g1 first, got %s", result.Ranked[0].CandidateID)
	}
}

func TestTransientLibraryFailureRetriesThenSurfaces(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	store.libraryErr = &domain.TransientUpstreamError{Op: "db", Err: fmt.Errorf("connection reset")}

	svc := newTestService(t, store, nil)
	_, err := svc.GetSignature(context.Background(), 1)
	if !domain.IsTransient(err) {
		t.Errorf("expected the transient error to surface, got %v", err)
	}
}

func TestGetInsightsLabels(t *testing.T) {
	store := newFakeStore()
	seedTwinPair(store)
	svc := newTestService(t, store, nil)

	insights, err := svc.GetInsights(context.Background(), 1)
	if err != nil {
		t.Fatalf("insights: %v", err)
	}
	if insights.DominantGenre != "Drama" {
		t.Errorf("expected Drama dominant, got %s", insights.DominantGenre)
	}
	if insights.RatingStyle != "enthusiast" {
		t.Errorf("avg 8 should read enthusiast, got %s", insights.RatingStyle)
	}
}
