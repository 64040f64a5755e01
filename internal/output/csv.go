// Package output writes the master table to files and reads it back.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/cyderes/dog-ratings-pipeline/internal/faults"
	"github.com/cyderes/dog-ratings-pipeline/internal/models"
)

// Columns is the master table header, in file order.
var Columns = []string{
	"tweet_id",
	"timestamp",
	"text",
	"source",
	"rating_numerator",
	"rating_denominator",
	"dog_stage",
	"jpg_url",
	"breed_of_dog",
	"favorite_count",
	"retweet_count",
}

// TimestampLayout is how timestamps are written to the master CSV.
const TimestampLayout = "2006-01-02 15:04:05-07:00"

// WriteCSV writes records with a header row. Nil fields become empty cells.
func WriteCSV(w io.Writer, records []models.MasterRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.TweetID,
			r.Timestamp.Format(TimestampLayout),
			r.Text,
			r.Source,
			strconv.Itoa(r.RatingNumerator),
			strconv.Itoa(r.RatingDenominator),
			string(r.Stage),
			optString(r.JPGURL),
			optString(r.Breed),
			optInt(r.FavoriteCount),
			optInt(r.RetweetCount),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing record %s: %w", r.TweetID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes records to path, replacing any existing file.
func WriteCSVFile(path string, records []models.MasterRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV reads a master table written by WriteCSV.
func ReadCSV(r io.Reader) ([]models.MasterRecord, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, faults.Acquisition(err, "reading master header")
	}
	if len(header) != len(Columns) {
		return nil, faults.Acquisition(nil, "master header has %d columns, want %d", len(header), len(Columns))
	}
	for i, c := range Columns {
		if header[i] != c {
			return nil, faults.Acquisition(nil, "master column %d is %q, want %q", i, header[i], c)
		}
	}

	var records []models.MasterRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, faults.Acquisition(err, "reading master table")
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("master line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadCSVFile reads the master table at path.
func ReadCSVFile(path string) ([]models.MasterRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, faults.Acquisition(err, "opening %s", path)
	}
	defer f.Close()
	return ReadCSV(f)
}

func parseRow(row []string) (models.MasterRecord, error) {
	ts, err := time.Parse(TimestampLayout, row[1])
	if err != nil {
		return models.MasterRecord{}, faults.TypeCoercion(err, "timestamp %q", row[1])
	}
	num, err := strconv.Atoi(row[4])
	if err != nil {
		return models.MasterRecord{}, faults.TypeCoercion(err, "rating_numerator %q", row[4])
	}
	den, err := strconv.Atoi(row[5])
	if err != nil {
		return models.MasterRecord{}, faults.TypeCoercion(err, "rating_denominator %q", row[5])
	}
	stage, err := models.ParseLifeStage(row[6])
	if err != nil {
		return models.MasterRecord{}, faults.TypeCoercion(err, "dog_stage")
	}
	fav, err := parseOptInt(row[9])
	if err != nil {
		return models.MasterRecord{}, faults.TypeCoercion(err, "favorite_count %q", row[9])
	}
	rt, err := parseOptInt(row[10])
	if err != nil {
		return models.MasterRecord{}, faults.TypeCoercion(err, "retweet_count %q", row[10])
	}

	return models.MasterRecord{
		TweetID:           row[0],
		Timestamp:         ts,
		Text:              row[2],
		Source:            row[3],
		RatingNumerator:   num,
		RatingDenominator: den,
		Stage:             stage,
		JPGURL:            parseOptString(row[7]),
		Breed:             parseOptString(row[8]),
		FavoriteCount:     fav,
		RetweetCount:      rt,
	}, nil
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optInt(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

func parseOptString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseOptInt(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
