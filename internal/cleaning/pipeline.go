package cleaning

import (
	"github.com/cyderes/dog-ratings-pipeline/internal/models"
	"github.com/cyderes/dog-ratings-pipeline/internal/rules"
)

// Result holds the table produced by every stage of one run.
type Result struct {
	Archive    []models.ArchivePost
	Posts      []models.Post
	PostStats  PostStats
	Guesses    []models.ImageGuess
	Images     []models.ImageBreed
	ImageStats ImageStats
	Metrics    []models.EngagementMetrics
	Records    []models.MasterRecord
}

// Process runs normalize, reconcile and merge over raw. Prediction rows with
// an already seen image URL are dropped before they are coerced. It stops at
// the first fault.
func Process(raw models.RawTables, rs *rules.Set) (*Result, error) {
	var (
		res Result
		err error
	)

	if res.Archive, err = NormalizeArchive(raw.Archive); err != nil {
		return nil, err
	}
	predictions, dropped := DedupeImageRows(raw.Predictions)
	if res.Guesses, err = NormalizeImages(predictions); err != nil {
		return nil, err
	}
	if res.Metrics, err = NormalizeMetrics(raw.Metrics); err != nil {
		return nil, err
	}

	res.Posts, res.PostStats = CleanPosts(res.Archive, rs)
	res.Images, res.ImageStats = CleanImages(res.Guesses)
	res.ImageStats.Input = len(raw.Predictions)
	res.ImageStats.DuplicateURLs += dropped

	if res.Records, err = Merge(res.Posts, res.Images, res.Metrics); err != nil {
		return nil, err
	}
	return &res, nil
}
