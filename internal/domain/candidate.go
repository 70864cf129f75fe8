package domain

// Candidate is one entry in a discovery pool: either an unseen media item
// or another user. User candidates additionally carry a signature so
// personality distance can be blended in.
type Candidate struct {
	ID        string          `json:"id"`
	Genres    []string        `json:"genres"`
	Signature *TasteSignature `json:"signature,omitempty"`
}

// CandidateScore is ephemeral ranking output, never persisted.
type CandidateScore struct {
	CandidateID     string   `json:"candidate_id"`
	Score           int      `json:"score"` // 0..100, rounded
	MatchedGenres   []string `json:"matched_genres"`
	PredictedRating float64  `json:"predicted_rating"` // 0..10
}
