package cleaning

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyderes/dog-ratings-pipeline/internal/faults"
	"github.com/cyderes/dog-ratings-pipeline/internal/models"
)

var canonicalPattern = regexp.MustCompile(`^(0|[1-9][0-9]*)$`)

func TestCanonicalID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"892420643555336193", "892420643555336193"},
		{" 892420643555336193\n", "892420643555336193"},
		{"0", "0"},
		{"000", "0"},
		{"0042", "42"},
		{"18446744073709551615", "18446744073709551615"},
	}
	for _, tt := range tests {
		got, err := CanonicalID(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Regexp(t, canonicalPattern, got)
	}
}

func TestCanonicalID_Invalid(t *testing.T) {
	for _, in := range []string{"", "-1", "+1", "8.92420643555336e+17", "12ab", "18446744073709551616", "1_000"} {
		_, err := CanonicalID(in)
		assert.ErrorIs(t, err, faults.ErrTypeCoercion, "input %q", in)
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2017-08-01 16:23:56 +0000")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2017, 8, 1, 16, 23, 56, 0, time.UTC)))

	_, err = ParseTimestamp("2017-08-01T16:23:56Z")
	assert.ErrorIs(t, err, faults.ErrTypeCoercion)
}

func TestNormalizeArchive(t *testing.T) {
	rows := []models.ArchiveRow{archiveRow("0892420643555336193", "None", "None", "None", "None")}
	rows[0].RetweetedStatusID = " "

	posts, err := NormalizeArchive(rows)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	p := posts[0]
	assert.Equal(t, "892420643555336193", p.TweetID)
	assert.Equal(t, 13, p.RatingNumerator)
	assert.Equal(t, 10, p.RatingDenominator)
	assert.Equal(t, "None", p.Doggo)
	assert.False(t, p.IsReshare())
	assert.Equal(t, "0892420643555336193", rows[0].TweetID, "input rows are left untouched")
}

func TestNormalizeArchive_Faults(t *testing.T) {
	badTS := archiveRow("1", "None", "None", "None", "None")
	badTS.Timestamp = "yesterday"
	badRating := archiveRow("2", "None", "None", "None", "None")
	badRating.RatingNumerator = "9.75"
	badID := archiveRow("abc", "None", "None", "None", "None")

	for name, row := range map[string]models.ArchiveRow{"timestamp": badTS, "rating": badRating, "id": badID} {
		t.Run(name, func(t *testing.T) {
			ok := archiveRow("3", "None", "None", "None", "None")
			_, err := NormalizeArchive([]models.ArchiveRow{ok, row})
			require.Error(t, err)
			assert.ErrorIs(t, err, faults.ErrTypeCoercion)

			var rowErr *RowError
			require.ErrorAs(t, err, &rowErr)
			assert.Equal(t, 1, rowErr.Row)
			assert.Equal(t, "archive", rowErr.Table)
		})
	}
}

func TestNormalizeImages(t *testing.T) {
	row := predictionRow("666020888022790149", "https://pbs.twimg.com/media/CT4udn0WwAA0aMy.jpg",
		"Welsh_springer_spaniel", "True", "collie", "true", "Shetland_sheepdog", "FALSE")

	images, err := NormalizeImages([]models.PredictionRow{row})
	require.NoError(t, err)
	require.Len(t, images, 1)

	img := images[0]
	assert.Equal(t, 1, img.ImgNum)
	assert.Equal(t, models.Guess{Label: "Welsh_springer_spaniel", Confidence: 0.5, IsDog: true}, img.Guesses[0])
	assert.Equal(t, "collie", img.Guesses[1].Label)
	assert.False(t, img.Guesses[2].IsDog)
}

func TestNormalizeImages_Faults(t *testing.T) {
	badFlag := predictionRow("1", "u", "a", "yes", "b", "False", "c", "False")
	badConf := predictionRow("1", "u", "a", "True", "b", "False", "c", "False")
	badConf.P2Conf = "1.5"
	nanConf := predictionRow("1", "u", "a", "True", "b", "False", "c", "False")
	nanConf.P1Conf = "NaN"

	for _, row := range []models.PredictionRow{badFlag, badConf, nanConf} {
		_, err := NormalizeImages([]models.PredictionRow{row})
		assert.ErrorIs(t, err, faults.ErrTypeCoercion)
	}
}

func TestNormalizeImages_ImgNumNeverFails(t *testing.T) {
	row := predictionRow("1", "u", "a", "True", "b", "False", "c", "False")
	row.ImgNum = "two"

	images, err := NormalizeImages([]models.PredictionRow{row})
	require.NoError(t, err)
	assert.Equal(t, 0, images[0].ImgNum)
}

func TestNormalizeMetrics(t *testing.T) {
	rows := []models.MetricsRow{
		{ID: json.Number("892420643555336193"), FavoriteCount: "39467", RetweetCount: "8853"},
		{ID: json.Number("892177421306343426"), FavoriteCount: "0", RetweetCount: "0"},
	}

	metrics, err := NormalizeMetrics(rows)
	require.NoError(t, err)
	assert.Equal(t, []models.EngagementMetrics{
		{TweetID: "892420643555336193", FavoriteCount: 39467, RetweetCount: 8853},
		{TweetID: "892177421306343426", FavoriteCount: 0, RetweetCount: 0},
	}, metrics)
}

func TestNormalizeMetrics_NegativeCount(t *testing.T) {
	_, err := NormalizeMetrics([]models.MetricsRow{{ID: "1", FavoriteCount: "-3", RetweetCount: "1"}})
	assert.ErrorIs(t, err, faults.ErrTypeCoercion)
	assert.Contains(t, err.Error(), "favorite_count")
}
