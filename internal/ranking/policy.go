package ranking

// Selection picks how a ranked pool is reduced to a feature's answer.
type Selection string

const (
	// SelectBest returns the single top candidate.
	SelectBest Selection = "best"
	// SelectRandomTopK returns one uniformly-chosen candidate from the
	// top K, so a feature does not keep surfacing the same item.
	SelectRandomTopK Selection = "random_among_top_k"
	// SelectAll returns the full sorted list, bounded by TopK.
	SelectAll Selection = "full_sorted_list"
)

// Policy is one discovery feature's ranking parameters. Weight splits
// are feature-tuned, not universal.
type Policy struct {
	Name              string
	MinScore          int
	TopK              int
	Selection         Selection
	GenreWeight       float64
	PersonalityWeight float64
}

var (
	// PolicyBlindMatch ranks candidate users for the next blind date:
	// mostly genre affinity, a slice of personality distance.
	PolicyBlindMatch = Policy{
		Name:              "blind_match",
		MinScore:          40,
		Selection:         SelectBest,
		GenreWeight:       0.7,
		PersonalityWeight: 0.3,
	}

	// PolicyRoulette picks a random unseen item from the top ten.
	PolicyRoulette = Policy{
		Name:        "roulette",
		MinScore:    30,
		TopK:        10,
		Selection:   SelectRandomTopK,
		GenreWeight: 1,
	}

	// PolicyItemRec is the plain ranked recommendation list.
	PolicyItemRec = Policy{
		Name:        "item_rec",
		MinScore:    50,
		TopK:        20,
		Selection:   SelectAll,
		GenreWeight: 1,
	}

	// PolicyConsensus ranks items for a whole group; the mean genre
	// score across members is computed by the caller per member and
	// averaged before selection.
	PolicyConsensus = Policy{
		Name:        "consensus",
		TopK:        20,
		Selection:   SelectAll,
		GenreWeight: 1,
	}
)
