package scoring

// Policy names one discovery feature's pairwise weighting scheme. The
// weight splits are feature-tuned constants, not a universal formula.
type Policy struct {
	Name string

	// RatingWeight and SetWeight blend the rating-similarity and
	// Jaccard terms; they sum to 1.
	RatingWeight float64
	SetWeight    float64

	// MinShared is the fail-fast overlap gate. Pairs below it are
	// rejected, not scored zero.
	MinShared int

	// LikedOnly restricts the shared-item set to items both users
	// rated at or above LikedThreshold.
	LikedOnly      bool
	LikedThreshold float64

	// GenreFallback scores a zero-overlap pair by genre similarity
	// alone instead of rejecting it.
	GenreFallback bool
}

var (
	// PolicyMash is the general compatibility score: no overlap
	// minimum, genre-only fallback when the pair shares nothing.
	PolicyMash = Policy{
		Name:          "mash",
		RatingWeight:  0.6,
		SetWeight:     0.4,
		GenreFallback: true,
	}

	// PolicyTwins is taste-twin discovery: liked items only, at least
	// three in common.
	PolicyTwins = Policy{
		Name:           "twins",
		RatingWeight:   0.6,
		SetWeight:      0.4,
		MinShared:      3,
		LikedOnly:      true,
		LikedThreshold: 7,
	}
)
