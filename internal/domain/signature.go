package domain

// NeutralRating is the midpoint used when a library has no rated entries.
const NeutralRating = 5.0

// TasteSignature is the derived summary of a user's rated history. It is
// recomputed on demand and only ever cached with a short TTL.
type TasteSignature struct {
	UserID          int64          `json:"user_id"`
	GenreHistogram  map[string]int `json:"genre_histogram"`
	TopGenres       []string       `json:"top_genres"`
	AvgRating       float64        `json:"avg_rating"`
	MainstreamScore int            `json:"mainstream_score"`
	DiversityScore  int            `json:"diversity_score"`
}

// Empty reports whether the signature was built from an empty library.
// Scoring against an empty signature is refused upstream.
func (s *TasteSignature) Empty() bool {
	return len(s.GenreHistogram) == 0
}
