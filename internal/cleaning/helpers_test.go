package cleaning

import "github.com/cyderes/dog-ratings-pipeline/internal/models"

func archiveRow(id, doggo, floofer, pupper, puppo string) models.ArchiveRow {
	return models.ArchiveRow{
		TweetID:           id,
		Timestamp:         "2017-08-01 16:23:56 +0000",
		Source:            `<a href="http://twitter.com/download/iphone" rel="nofollow">Twitter for iPhone</a>`,
		Text:              "This is Phineas. He's a mystical boy. 13/10",
		ExpandedURLs:      "https://twitter.com/dog_rates/status/" + id + "/photo/1",
		RatingNumerator:   "13",
		RatingDenominator: "10",
		Name:              "Phineas",
		Doggo:             doggo,
		Floofer:           floofer,
		Pupper:            pupper,
		Puppo:             puppo,
	}
}

func predictionRow(id, url, p1, p1Dog, p2, p2Dog, p3, p3Dog string) models.PredictionRow {
	return models.PredictionRow{
		TweetID: id,
		JPGURL:  url,
		ImgNum:  "1",
		P1:      p1,
		P1Conf:  "0.5",
		P1Dog:   p1Dog,
		P2:      p2,
		P2Conf:  "0.3",
		P2Dog:   p2Dog,
		P3:      p3,
		P3Conf:  "0.1",
		P3Dog:   p3Dog,
	}
}
