// Package report computes descriptive statistics over the master table.
package report

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/cyderes/dog-ratings-pipeline/internal/models"
)

// Summary is a describe-style summary of one numeric column. Only non-null
// values are counted.
type Summary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	P50    float64 `json:"p50"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

// BreedEngagement is the mean engagement of one breed.
type BreedEngagement struct {
	Breed        string  `json:"breed"`
	Count        int     `json:"count"`
	MeanRetweets float64 `json:"mean_retweets"`
	MeanFavorite float64 `json:"mean_favorites"`
}

// BreedRating is the mean rating numerator of one breed.
type BreedRating struct {
	Breed      string  `json:"breed"`
	Count      int     `json:"count"`
	MeanRating float64 `json:"mean_rating"`
}

// Share is one bucket of a categorical distribution.
type Share struct {
	Value string  `json:"value"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// Report is the full set of statistics for one master table.
type Report struct {
	Records int       `json:"records"`
	Columns []Summary `json:"columns"`

	// Sorted ascending by mean retweets.
	EngagementByBreed []BreedEngagement `json:"engagement_by_breed"`

	// Pearson r between retweet and favorite counts. Nil when fewer than two
	// rows have both counts or one of them is constant.
	RetweetFavoriteCorrelation *float64 `json:"retweet_favorite_correlation"`

	Sources []Share `json:"sources"`
	Stages  []Share `json:"stages"`

	// Breeds with more than MinBreedCount rows, sorted by breed name, and
	// the mean rating over all of their rows.
	MinBreedCount      int           `json:"min_breed_count"`
	RatingByBreed      []BreedRating `json:"rating_by_breed"`
	FilteredMeanRating *float64      `json:"filtered_mean_rating"`
}

// Build computes the report for records.
func Build(records []models.MasterRecord, minBreedCount int) (*Report, error) {
	r := &Report{Records: len(records), MinBreedCount: minBreedCount}

	var nums, dens, favs, rts []float64
	for _, rec := range records {
		nums = append(nums, float64(rec.RatingNumerator))
		dens = append(dens, float64(rec.RatingDenominator))
		if rec.FavoriteCount != nil {
			favs = append(favs, float64(*rec.FavoriteCount))
		}
		if rec.RetweetCount != nil {
			rts = append(rts, float64(*rec.RetweetCount))
		}
	}
	for _, c := range []struct {
		name   string
		values []float64
	}{
		{"rating_numerator", nums},
		{"rating_denominator", dens},
		{"favorite_count", favs},
		{"retweet_count", rts},
	} {
		s, err := summarize(c.name, c.values)
		if err != nil {
			return nil, err
		}
		r.Columns = append(r.Columns, s)
	}

	var err error
	if r.EngagementByBreed, err = engagementByBreed(records); err != nil {
		return nil, err
	}
	if r.RetweetFavoriteCorrelation, err = correlation(records); err != nil {
		return nil, err
	}
	r.Sources = distribution(records, func(m models.MasterRecord) string { return m.Source })
	r.Stages = distribution(records, func(m models.MasterRecord) string { return string(m.Stage) })
	if r.RatingByBreed, r.FilteredMeanRating, err = ratingByBreed(records, minBreedCount); err != nil {
		return nil, err
	}
	return r, nil
}

// summarize uses nearest-rank quartiles so that tiny tables still get a
// value.
func summarize(column string, values []float64) (Summary, error) {
	s := Summary{Column: column, Count: len(values)}
	if len(values) == 0 {
		return s, nil
	}

	var err error
	if s.Mean, err = stats.Mean(values); err != nil {
		return s, fmt.Errorf("%s mean: %w", column, err)
	}
	if len(values) > 1 {
		if s.Std, err = stats.StandardDeviationSample(values); err != nil {
			return s, fmt.Errorf("%s std: %w", column, err)
		}
	}
	if s.Min, err = stats.Min(values); err != nil {
		return s, fmt.Errorf("%s min: %w", column, err)
	}
	if s.Max, err = stats.Max(values); err != nil {
		return s, fmt.Errorf("%s max: %w", column, err)
	}
	if s.P25, err = stats.PercentileNearestRank(values, 25); err != nil {
		return s, fmt.Errorf("%s p25: %w", column, err)
	}
	if s.P50, err = stats.PercentileNearestRank(values, 50); err != nil {
		return s, fmt.Errorf("%s p50: %w", column, err)
	}
	if s.P75, err = stats.PercentileNearestRank(values, 75); err != nil {
		return s, fmt.Errorf("%s p75: %w", column, err)
	}
	return s, nil
}

func engagementByBreed(records []models.MasterRecord) ([]BreedEngagement, error) {
	type acc struct{ rts, favs []float64 }
	groups := map[string]*acc{}
	for _, rec := range records {
		if rec.Breed == nil || rec.RetweetCount == nil || rec.FavoriteCount == nil {
			continue
		}
		a, ok := groups[*rec.Breed]
		if !ok {
			a = &acc{}
			groups[*rec.Breed] = a
		}
		a.rts = append(a.rts, float64(*rec.RetweetCount))
		a.favs = append(a.favs, float64(*rec.FavoriteCount))
	}

	out := make([]BreedEngagement, 0, len(groups))
	for breed, a := range groups {
		rt, err := stats.Mean(a.rts)
		if err != nil {
			return nil, fmt.Errorf("breed %s retweets: %w", breed, err)
		}
		fav, err := stats.Mean(a.favs)
		if err != nil {
			return nil, fmt.Errorf("breed %s favorites: %w", breed, err)
		}
		out = append(out, BreedEngagement{Breed: breed, Count: len(a.rts), MeanRetweets: rt, MeanFavorite: fav})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MeanRetweets != out[j].MeanRetweets {
			return out[i].MeanRetweets < out[j].MeanRetweets
		}
		return out[i].Breed < out[j].Breed
	})
	return out, nil
}

func correlation(records []models.MasterRecord) (*float64, error) {
	var rts, favs []float64
	for _, rec := range records {
		if rec.RetweetCount == nil || rec.FavoriteCount == nil {
			continue
		}
		rts = append(rts, float64(*rec.RetweetCount))
		favs = append(favs, float64(*rec.FavoriteCount))
	}
	if len(rts) < 2 {
		return nil, nil
	}
	for _, d := range [][]float64{rts, favs} {
		sd, err := stats.StandardDeviationPopulation(d)
		if err != nil {
			return nil, fmt.Errorf("retweet/favorite correlation: %w", err)
		}
		if sd == 0 {
			return nil, nil
		}
	}
	r, err := stats.Pearson(rts, favs)
	if err != nil {
		return nil, fmt.Errorf("retweet/favorite correlation: %w", err)
	}
	return &r, nil
}

// distribution counts values, sorted by count descending then value.
func distribution(records []models.MasterRecord, key func(models.MasterRecord) string) []Share {
	counts := map[string]int{}
	for _, rec := range records {
		counts[key(rec)]++
	}
	out := make([]Share, 0, len(counts))
	for v, n := range counts {
		out = append(out, Share{Value: v, Count: n, Share: float64(n) / float64(len(records))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func ratingByBreed(records []models.MasterRecord, minCount int) ([]BreedRating, *float64, error) {
	groups := map[string][]float64{}
	for _, rec := range records {
		if rec.Breed == nil {
			continue
		}
		groups[*rec.Breed] = append(groups[*rec.Breed], float64(rec.RatingNumerator))
	}

	var out []BreedRating
	var all []float64
	for breed, ratings := range groups {
		if len(ratings) <= minCount {
			continue
		}
		m, err := stats.Mean(ratings)
		if err != nil {
			return nil, nil, fmt.Errorf("breed %s rating: %w", breed, err)
		}
		out = append(out, BreedRating{Breed: breed, Count: len(ratings), MeanRating: m})
		all = append(all, ratings...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Breed < out[j].Breed })

	if len(all) == 0 {
		return out, nil, nil
	}
	m, err := stats.Mean(all)
	if err != nil {
		return nil, nil, fmt.Errorf("filtered rating mean: %w", err)
	}
	return out, &m, nil
}
