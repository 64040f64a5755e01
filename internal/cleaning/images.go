package cleaning

import (
	"strings"

	"github.com/cyderes/dog-ratings-pipeline/internal/models"
)

// ImageStats counts what CleanImages did to its input.
type ImageStats struct {
	Input         int
	DuplicateURLs int
	NoBreed       int
	Output        int
}

// DedupeImageRows keeps the first raw prediction row for each image URL and
// returns how many later rows it dropped. It runs before type coercion, so a
// dropped row is never parsed.
func DedupeImageRows(rows []models.PredictionRow) ([]models.PredictionRow, int) {
	seen := make(map[string]struct{}, len(rows))
	out := make([]models.PredictionRow, 0, len(rows))
	for _, r := range rows {
		url := strings.TrimSpace(r.JPGURL)
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}

// CleanImages drops every prediction whose image URL was already seen
// earlier in the table and reduces the survivors to their breed.
func CleanImages(images []models.ImageGuess) ([]models.ImageBreed, ImageStats) {
	stats := ImageStats{Input: len(images)}
	seen := make(map[string]struct{}, len(images))
	out := make([]models.ImageBreed, 0, len(images))

	for _, img := range images {
		if _, dup := seen[img.JPGURL]; dup {
			stats.DuplicateURLs++
			continue
		}
		seen[img.JPGURL] = struct{}{}

		breed := ExtractBreed(img.Guesses)
		if breed == nil {
			stats.NoBreed++
		}
		out = append(out, models.ImageBreed{TweetID: img.TweetID, JPGURL: img.JPGURL, Breed: breed})
	}

	stats.Output = len(out)
	return out, stats
}

// ExtractBreed returns the label of the first guess, in the given rank
// order, that is a dog. Confidence is not consulted. It returns nil when no
// guess is a dog.
func ExtractBreed(guesses [3]models.Guess) *string {
	for _, g := range guesses {
		if g.IsDog {
			label := g.Label
			return &label
		}
	}
	return nil
}
