package domain

import "time"

type MediaType string

const (
	MediaBook  MediaType = "book"
	MediaAnime MediaType = "anime"
	MediaManga MediaType = "manga"
	MediaMovie MediaType = "movie"
	MediaMusic MediaType = "music"
)

func (m MediaType) Valid() bool {
	switch m {
	case MediaBook, MediaAnime, MediaManga, MediaMovie, MediaMusic:
		return true
	}
	return false
}

// LibraryEntry is one consumed-media row owned by a single user.
// Rating is nil when the item was imported but never rated; nil is
// "unrated", never zero.
type LibraryEntry struct {
	UserID    int64      `json:"user_id"`
	MediaType MediaType  `json:"media_type"`
	MediaID   string     `json:"media_id"`
	Rating    *float64   `json:"rating,omitempty"` // 1..10
	Genres    []string   `json:"genres"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Rated reports whether the entry carries a rating.
func (e LibraryEntry) Rated() bool {
	return e.Rating != nil
}
