package cleaning

import (
	"github.com/cyderes/dog-ratings-pipeline/internal/models"
	"github.com/cyderes/dog-ratings-pipeline/internal/rules"
)

// PostStats counts what CleanPosts did to its input.
type PostStats struct {
	Input      int
	Reshares   int
	Denylisted int
	Corrected  int
	MultiStage int
	Output     int
}

// CleanPosts drops reshares and denylisted posts, applies rating
// corrections, collapses the stage fields into one life stage and
// normalizes the source label. A reshare that is also denylisted counts as
// a reshare.
func CleanPosts(posts []models.ArchivePost, rs *rules.Set) ([]models.Post, PostStats) {
	stats := PostStats{Input: len(posts)}
	out := make([]models.Post, 0, len(posts))

	for _, p := range posts {
		if p.IsReshare() {
			stats.Reshares++
			continue
		}

		num, den := p.RatingNumerator, p.RatingDenominator
		if r, ok := rs.Lookup(p.TweetID); ok {
			switch r.Action {
			case rules.Remove:
				stats.Denylisted++
				continue
			case rules.Correct:
				num, den = r.Numerator, r.Denominator
				stats.Corrected++
			}
		}

		stage, active := CollapseLifeStage(p.Doggo, p.Floofer, p.Pupper, p.Puppo)
		if active > 1 {
			stats.MultiStage++
		}

		out = append(out, models.Post{
			TweetID:           p.TweetID,
			Timestamp:         p.Timestamp,
			Text:              p.Text,
			Source:            NormalizeSource(p.Source),
			RatingNumerator:   num,
			RatingDenominator: den,
			Stage:             stage,
		})
	}

	stats.Output = len(out)
	return out, stats
}

// CollapseLifeStage resolves the four one-hot stage fields into a single
// stage. A field is active when its value equals its own name ("None" and
// blanks are inactive). When several are active the first in
// models.StagePrecedence wins. active is the number of active fields.
func CollapseLifeStage(doggo, floofer, pupper, puppo string) (stage models.LifeStage, active int) {
	values := [4]string{doggo, floofer, pupper, puppo}
	stage = models.StageUnknown
	for i, s := range models.StagePrecedence {
		if values[i] != string(s) {
			continue
		}
		active++
		if active == 1 {
			stage = s
		}
	}
	return stage, active
}
