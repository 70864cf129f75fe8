package seeds

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	userCount    = 20
	mediaPerType = 12
	libraryRows  = 400
)

var mediaGenres = map[string][]string{
	"book":  {"Fantasy", "Mystery", "Romance", "Sci-Fi", "Literary"},
	"anime": {"Shonen", "Slice of Life", "Mecha", "Drama", "Comedy"},
	"manga": {"Shonen", "Seinen", "Romance", "Horror", "Comedy"},
	"movie": {"Drama", "Action", "Comedy", "Thriller", "Sci-Fi"},
	"music": {"Rock", "Pop", "Jazz", "Hip-Hop", "Electronic"},
}

func Setup(ctx context.Context, pool *pgxpool.Pool) error {
	rng := rand.New(rand.NewSource(42))

	// Truncate existing data before insert
	log.Println("[seed] truncating existing data")
	if _, err := pool.Exec(ctx, `
		TRUNCATE matches, library_entries, media, users RESTART IDENTITY CASCADE
	`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	log.Println("[seed] inserting users")
	if err := seedUsers(ctx, pool, userCount); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	log.Println("[seed] inserting media")
	mediaIDs, err := seedMedia(ctx, pool, rng)
	if err != nil {
		return fmt.Errorf("seed media: %w", err)
	}

	log.Println("[seed] inserting library entries")
	if err := seedLibraries(ctx, pool, rng, mediaIDs); err != nil {
		return fmt.Errorf("seed libraries: %w", err)
	}

	log.Println("[seed] seeding complete")
	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, n int) error {
	rows := []string{}
	args := []any{}

	for i := 0; i < n; i++ {
		rows = append(rows, fmt.Sprintf("($%d)", i+1))
		args = append(args, fmt.Sprintf("user_%02d", i+1))
	}

	query := "INSERT INTO users (username) VALUES " + strings.Join(rows, ", ")
	_, err := pool.Exec(ctx, query, args...)
	return err
}

type seededMedia struct {
	id        string
	mediaType string
	genres    []string
}

func seedMedia(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand) ([]seededMedia, error) {
	rows := []string{}
	args := []any{}
	var all []seededMedia

	for _, mediaType := range []string{"book", "anime", "manga", "movie", "music"} {
		genrePool := mediaGenres[mediaType]
		for i := 0; i < mediaPerType; i++ {
			id := fmt.Sprintf("%s-%03d", mediaType, i+1)
			title := fmt.Sprintf("%s title %d", strings.ToUpper(mediaType[:1])+mediaType[1:], i+1)

			// One or two genres per item, skewed toward the front of
			// the pool so some genres dominate.
			genres := []string{genrePool[skewedIndex(rng, len(genrePool))]}
			if rng.Float64() < 0.4 {
				extra := genrePool[rng.Intn(len(genrePool))]
				if extra != genres[0] {
					genres = append(genres, extra)
				}
			}

			base := len(args)
			rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
			args = append(args, id, mediaType, title, genres)
			all = append(all, seededMedia{id: id, mediaType: mediaType, genres: genres})
		}
	}

	query := "INSERT INTO media (id, media_type, title, genres) VALUES " + strings.Join(rows, ", ")
	if _, err := pool.Exec(ctx, query, args...); err != nil {
		return nil, err
	}
	return all, nil
}

func seedLibraries(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand, media []seededMedia) error {
	seen := make(map[[2]string]bool)

	rows := []string{}
	args := []any{}

	for i := 0; i < libraryRows; i++ {
		userID := int64(skewedIndex(rng, userCount)) + 1
		m := media[skewedIndex(rng, len(media))]

		key := [2]string{fmt.Sprint(userID), m.id}
		if seen[key] {
			continue
		}
		seen[key] = true

		// Roughly one in eight entries is imported but never rated.
		var rating *float64
		if rng.Float64() >= 0.125 {
			v := float64(rng.Intn(10) + 1)
			rating = &v
		}

		base := len(args)
		rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5))
		args = append(args, userID, m.mediaType, m.id, rating, m.genres)
	}

	if len(rows) == 0 {
		return nil
	}

	query := "INSERT INTO library_entries (user_id, media_type, media_id, rating, genres) VALUES " +
		strings.Join(rows, ", ")

	_, err := pool.Exec(ctx, query, args...)
	return err
}

// skewedIndex biases toward low indexes, giving a few heavy users and
// a popular head of media.
func skewedIndex(rng *rand.Rand, n int) int {
	idx := int(math.Floor(math.Pow(rng.Float64(), 1.5) * float64(n)))
	if idx >= n {
		idx = n - 1
	}
	return idx
}
