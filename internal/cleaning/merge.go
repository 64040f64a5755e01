package cleaning

import (
	"sort"

	"github.com/cyderes/dog-ratings-pipeline/internal/faults"
	"github.com/cyderes/dog-ratings-pipeline/internal/models"
)

// Merge left-joins posts with images and then with metrics on tweet id.
//
// The joins emit one row per matching right-hand row, so a key that occurs
// more than once on the right would multiply posts. Each join's row count is
// checked against the post count and a mismatch is returned as a data
// quality fault naming the duplicated keys.
func Merge(posts []models.Post, images []models.ImageBreed, metrics []models.EngagementMetrics) ([]models.MasterRecord, error) {
	withImages := leftJoin(posts, images,
		func(p models.Post) string { return p.TweetID },
		func(i models.ImageBreed) string { return i.TweetID },
		func(p models.Post, img *models.ImageBreed) models.MasterRecord {
			rec := models.MasterRecord{
				TweetID:           p.TweetID,
				Timestamp:         p.Timestamp,
				Text:              p.Text,
				Source:            p.Source,
				RatingNumerator:   p.RatingNumerator,
				RatingDenominator: p.RatingDenominator,
				Stage:             p.Stage,
			}
			if img != nil {
				url := img.JPGURL
				rec.JPGURL = &url
				rec.Breed = img.Breed
			}
			return rec
		})
	if len(withImages) != len(posts) {
		return nil, faults.DataQuality(nil, "joining images: %d posts became %d rows, duplicated tweet ids %v",
			len(posts), len(withImages), duplicateKeys(images, func(i models.ImageBreed) string { return i.TweetID }))
	}

	merged := leftJoin(withImages, metrics,
		func(r models.MasterRecord) string { return r.TweetID },
		func(m models.EngagementMetrics) string { return m.TweetID },
		func(r models.MasterRecord, m *models.EngagementMetrics) models.MasterRecord {
			if m != nil {
				fav, rt := m.FavoriteCount, m.RetweetCount
				r.FavoriteCount = &fav
				r.RetweetCount = &rt
			}
			return r
		})
	if len(merged) != len(posts) {
		return nil, faults.DataQuality(nil, "joining metrics: %d posts became %d rows, duplicated tweet ids %v",
			len(posts), len(merged), duplicateKeys(metrics, func(m models.EngagementMetrics) string { return m.TweetID }))
	}

	return merged, nil
}

// leftJoin keeps every left row in order. A left row with n matches on the
// right yields n rows; with none it yields one row with a nil right side.
func leftJoin[L, R, O any](left []L, right []R, lkey func(L) string, rkey func(R) string, combine func(L, *R) O) []O {
	index := make(map[string][]int, len(right))
	for i, r := range right {
		k := rkey(r)
		index[k] = append(index[k], i)
	}

	out := make([]O, 0, len(left))
	for _, l := range left {
		matches := index[lkey(l)]
		if len(matches) == 0 {
			out = append(out, combine(l, nil))
			continue
		}
		for _, i := range matches {
			out = append(out, combine(l, &right[i]))
		}
	}
	return out
}

func duplicateKeys[T any](rows []T, key func(T) string) []string {
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[key(r)]++
	}
	var dups []string
	for k, n := range counts {
		if n > 1 {
			dups = append(dups, k)
		}
	}
	sort.Strings(dups)
	return dups
}
