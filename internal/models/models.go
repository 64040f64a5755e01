package models

import (
	"encoding/json"
	"time"
)

// ArchiveRow is one row of the archive export exactly as read from the CSV.
type ArchiveRow struct {
	TweetID                  string
	InReplyToStatusID        string
	InReplyToUserID          string
	Timestamp                string
	Source                   string
	Text                     string
	RetweetedStatusID        string
	RetweetedStatusUserID    string
	RetweetedStatusTimestamp string
	ExpandedURLs             string
	RatingNumerator          string
	RatingDenominator        string
	Name                     string
	Doggo                    string
	Floofer                  string
	Pupper                   string
	Puppo                    string
}

// PredictionRow is one row of the image prediction TSV as read.
type PredictionRow struct {
	TweetID string
	JPGURL  string
	ImgNum  string
	P1      string
	P1Conf  string
	P1Dog   string
	P2      string
	P2Conf  string
	P2Dog   string
	P3      string
	P3Conf  string
	P3Dog   string
}

// MetricsRow holds the fields of an engagement record this pipeline reads.
// The remaining fields of each JSON line are ignored.
type MetricsRow struct {
	ID            json.Number `json:"id"`
	FavoriteCount json.Number `json:"favorite_count"`
	RetweetCount  json.Number `json:"retweet_count"`
}

// RawTables is the output of acquisition.
type RawTables struct {
	Archive     []ArchiveRow
	Predictions []PredictionRow
	Metrics     []MetricsRow
}

// ArchivePost is an archive row after type coercion. Nothing has been
// filtered or dropped yet.
type ArchivePost struct {
	TweetID                  string
	InReplyToStatusID        string
	InReplyToUserID          string
	Timestamp                time.Time
	Source                   string
	Text                     string
	RetweetedStatusID        string
	RetweetedStatusUserID    string
	RetweetedStatusTimestamp string
	ExpandedURLs             string
	RatingNumerator          int
	RatingDenominator        int
	Doggo                    string
	Floofer                  string
	Pupper                   string
	Puppo                    string
}

// IsReshare reports whether the post carries a reshare back-reference.
func (p ArchivePost) IsReshare() bool {
	return p.RetweetedStatusID != "" || p.RetweetedStatusUserID != ""
}

// Post is a cleaned archive row.
type Post struct {
	TweetID           string
	Timestamp         time.Time
	Text              string
	Source            string
	RatingNumerator   int
	RatingDenominator int
	Stage             LifeStage
}

// Guess is one ranked label guess for an image.
type Guess struct {
	Label      string
	Confidence float64
	IsDog      bool
}

// ImageGuess is a prediction row after type coercion. Guesses keep the
// source's rank order.
type ImageGuess struct {
	TweetID string
	JPGURL  string
	ImgNum  int
	Guesses [3]Guess
}

// ImageBreed is a cleaned prediction row.
type ImageBreed struct {
	TweetID string
	JPGURL  string
	Breed   *string
}

// EngagementMetrics is the projected engagement record for one post.
type EngagementMetrics struct {
	TweetID       string
	FavoriteCount int64
	RetweetCount  int64
}

// MasterRecord is one row of the reconciled, joined table. Pointer fields
// are nil when the post had no matching image or engagement record.
type MasterRecord struct {
	TweetID           string    `json:"tweet_id" bson:"tweet_id" dynamodbav:"tweet_id"`
	Timestamp         time.Time `json:"timestamp" bson:"timestamp" dynamodbav:"timestamp"`
	Text              string    `json:"text" bson:"text" dynamodbav:"text"`
	Source            string    `json:"source" bson:"source" dynamodbav:"source"`
	RatingNumerator   int       `json:"rating_numerator" bson:"rating_numerator" dynamodbav:"rating_numerator"`
	RatingDenominator int       `json:"rating_denominator" bson:"rating_denominator" dynamodbav:"rating_denominator"`
	Stage             LifeStage `json:"dog_stage" bson:"dog_stage" dynamodbav:"dog_stage"`
	JPGURL            *string   `json:"jpg_url" bson:"jpg_url" dynamodbav:"jpg_url,omitempty"`
	Breed             *string   `json:"breed_of_dog" bson:"breed_of_dog" dynamodbav:"breed_of_dog,omitempty"`
	FavoriteCount     *int64    `json:"favorite_count" bson:"favorite_count" dynamodbav:"favorite_count,omitempty"`
	RetweetCount      *int64    `json:"retweet_count" bson:"retweet_count" dynamodbav:"retweet_count,omitempty"`
}

// RunStatus tracks the outcome of a pipeline run
type RunStatus struct {
	RunID         string    `json:"run_id" bson:"run_id" dynamodbav:"run_id"`
	StartedAt     time.Time `json:"started_at" bson:"started_at" dynamodbav:"started_at"`
	FinishedAt    time.Time `json:"finished_at" bson:"finished_at" dynamodbav:"finished_at"`
	Status        string    `json:"status" bson:"status" dynamodbav:"status"` // "success", "failure", "running", "never_run"
	ErrorMessage  string    `json:"error_message,omitempty" bson:"error_message,omitempty" dynamodbav:"error_message,omitempty"`
	ArchiveRows   int       `json:"archive_rows" bson:"archive_rows" dynamodbav:"archive_rows"`
	ImageRows     int       `json:"image_rows" bson:"image_rows" dynamodbav:"image_rows"`
	MetricsRows   int       `json:"metrics_rows" bson:"metrics_rows" dynamodbav:"metrics_rows"`
	RecordsMerged int       `json:"records_merged" bson:"records_merged" dynamodbav:"records_merged"`
}

// Run status values.
const (
	StatusRunning  = "running"
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusNeverRun = "never_run"
)
