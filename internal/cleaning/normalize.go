// Package cleaning turns acquired tables into the reconciled master table.
//
// Every function here is pure: it reads its input tables and returns new
// ones, leaving the inputs untouched so earlier stages stay available for
// auditing a run.
package cleaning

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cyderes/dog-ratings-pipeline/internal/faults"
	"github.com/cyderes/dog-ratings-pipeline/internal/models"
)

// TimestampLayout is the archive's timestamp format.
const TimestampLayout = "2006-01-02 15:04:05 -0700"

// CanonicalID returns the canonical decimal form of a non-negative 64-bit
// identifier. Surrounding whitespace and leading zeros are dropped; signs,
// fractions, blanks and overflow are type coercion faults.
func CanonicalID(raw string) (string, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return "", faults.TypeCoercion(err, "identifier %q", raw)
	}
	return strconv.FormatUint(n, 10), nil
}

// ParseTimestamp parses an archive timestamp.
func ParseTimestamp(raw string) (time.Time, error) {
	ts, err := time.Parse(TimestampLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, faults.TypeCoercion(err, "timestamp %q", raw)
	}
	return ts, nil
}

// NormalizeArchive coerces every archive row. The first bad value aborts.
func NormalizeArchive(rows []models.ArchiveRow) ([]models.ArchivePost, error) {
	out := make([]models.ArchivePost, 0, len(rows))
	for i, r := range rows {
		id, err := CanonicalID(r.TweetID)
		if err != nil {
			return nil, rowError(err, "archive", i)
		}
		ts, err := ParseTimestamp(r.Timestamp)
		if err != nil {
			return nil, rowError(err, "archive", i)
		}
		num, err := parseInt(r.RatingNumerator, "rating_numerator")
		if err != nil {
			return nil, rowError(err, "archive", i)
		}
		den, err := parseInt(r.RatingDenominator, "rating_denominator")
		if err != nil {
			return nil, rowError(err, "archive", i)
		}

		out = append(out, models.ArchivePost{
			TweetID:                  id,
			InReplyToStatusID:        strings.TrimSpace(r.InReplyToStatusID),
			InReplyToUserID:          strings.TrimSpace(r.InReplyToUserID),
			Timestamp:                ts,
			Source:                   r.Source,
			Text:                     r.Text,
			RetweetedStatusID:        strings.TrimSpace(r.RetweetedStatusID),
			RetweetedStatusUserID:    strings.TrimSpace(r.RetweetedStatusUserID),
			RetweetedStatusTimestamp: strings.TrimSpace(r.RetweetedStatusTimestamp),
			ExpandedURLs:             r.ExpandedURLs,
			RatingNumerator:          num,
			RatingDenominator:        den,
			Doggo:                    strings.TrimSpace(r.Doggo),
			Floofer:                  strings.TrimSpace(r.Floofer),
			Pupper:                   strings.TrimSpace(r.Pupper),
			Puppo:                    strings.TrimSpace(r.Puppo),
		})
	}
	return out, nil
}

// NormalizeImages coerces every prediction row. img_num is informational
// and never fails a row; an unparseable value becomes 0.
func NormalizeImages(rows []models.PredictionRow) ([]models.ImageGuess, error) {
	out := make([]models.ImageGuess, 0, len(rows))
	for i, r := range rows {
		id, err := CanonicalID(r.TweetID)
		if err != nil {
			return nil, rowError(err, "image predictions", i)
		}
		imgNum, _ := strconv.Atoi(strings.TrimSpace(r.ImgNum))

		g := models.ImageGuess{TweetID: id, JPGURL: strings.TrimSpace(r.JPGURL), ImgNum: imgNum}
		raw := [3][3]string{
			{r.P1, r.P1Conf, r.P1Dog},
			{r.P2, r.P2Conf, r.P2Dog},
			{r.P3, r.P3Conf, r.P3Dog},
		}
		for k, p := range raw {
			guess, err := parseGuess(p[0], p[1], p[2])
			if err != nil {
				return nil, rowError(err, "image predictions", i)
			}
			g.Guesses[k] = guess
		}
		out = append(out, g)
	}
	return out, nil
}

// NormalizeMetrics renames id to tweet_id, coerces it and projects each
// record down to its identifier and the two engagement counts. Duplicate
// identifiers are kept; Merge reports them.
func NormalizeMetrics(rows []models.MetricsRow) ([]models.EngagementMetrics, error) {
	out := make([]models.EngagementMetrics, 0, len(rows))
	for i, r := range rows {
		id, err := CanonicalID(r.ID.String())
		if err != nil {
			return nil, rowError(err, "metrics", i)
		}
		fav, err := parseCount(r.FavoriteCount, "favorite_count")
		if err != nil {
			return nil, rowError(err, "metrics", i)
		}
		rt, err := parseCount(r.RetweetCount, "retweet_count")
		if err != nil {
			return nil, rowError(err, "metrics", i)
		}
		out = append(out, models.EngagementMetrics{TweetID: id, FavoriteCount: fav, RetweetCount: rt})
	}
	return out, nil
}

func parseGuess(label, conf, dog string) (models.Guess, error) {
	c, err := strconv.ParseFloat(strings.TrimSpace(conf), 64)
	if err != nil {
		return models.Guess{}, faults.TypeCoercion(err, "confidence %q", conf)
	}
	if math.IsNaN(c) || c < 0 || c > 1 {
		return models.Guess{}, faults.TypeCoercion(nil, "confidence %v outside [0,1]", c)
	}
	isDog, err := strconv.ParseBool(strings.TrimSpace(dog))
	if err != nil {
		return models.Guess{}, faults.TypeCoercion(err, "is-dog flag %q", dog)
	}
	return models.Guess{Label: strings.TrimSpace(label), Confidence: c, IsDog: isDog}, nil
}

func parseInt(raw, field string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, faults.TypeCoercion(err, "%s %q", field, raw)
	}
	return n, nil
}

func parseCount(raw json.Number, field string) (int64, error) {
	n, err := strconv.ParseUint(raw.String(), 10, 63)
	if err != nil {
		return 0, faults.TypeCoercion(err, "%s %q", field, raw.String())
	}
	return int64(n), nil
}

func rowError(err error, table string, row int) error {
	return &RowError{Table: table, Row: row, Err: err}
}
