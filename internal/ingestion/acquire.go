package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cyderes/dog-ratings-pipeline/internal/faults"
	"github.com/cyderes/dog-ratings-pipeline/internal/models"
)

// maxLineSize bounds one metrics line. Full post objects run to a few KB.
const maxLineSize = 1 << 20

var archiveColumns = []string{
	"tweet_id", "in_reply_to_status_id", "in_reply_to_user_id", "timestamp", "source", "text",
	"retweeted_status_id", "retweeted_status_user_id", "retweeted_status_timestamp", "expanded_urls",
	"rating_numerator", "rating_denominator", "name", "doggo", "floofer", "pupper", "puppo",
}

var predictionColumns = []string{
	"tweet_id", "jpg_url", "img_num",
	"p1", "p1_conf", "p1_dog",
	"p2", "p2_conf", "p2_dog",
	"p3", "p3_conf", "p3_dog",
}

// Acquire reads the three sources named in the configuration. The
// prediction table is downloaded when a URL is configured.
func (s *Service) Acquire(ctx context.Context) (models.RawTables, error) {
	var raw models.RawTables

	archive, err := openSource("archive", s.config.Sources.ArchivePath)
	if err != nil {
		return raw, err
	}
	defer archive.Close()
	if raw.Archive, err = readArchive(archive); err != nil {
		return raw, err
	}

	if s.config.Sources.PredictionsURL != "" {
		raw.Predictions, err = s.fetchPredictions(ctx)
	} else {
		raw.Predictions, err = readPredictionsFile(s.config.Sources.PredictionsPath)
	}
	if err != nil {
		return raw, err
	}

	metrics, err := openSource("metrics", s.config.Sources.MetricsPath)
	if err != nil {
		return raw, err
	}
	defer metrics.Close()
	if raw.Metrics, err = readMetrics(metrics); err != nil {
		return raw, err
	}

	return raw, nil
}

func openSource(name, path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, faults.Acquisition(err, "opening %s source", name)
	}
	return f, nil
}

func readPredictionsFile(path string) ([]models.PredictionRow, error) {
	f, err := openSource("image predictions", path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readPredictions(f)
}

// readArchive parses the archive CSV. Columns are located by header name.
func readArchive(r io.Reader) ([]models.ArchiveRow, error) {
	cr := csv.NewReader(r)
	records, err := readTable(cr, "archive", archiveColumns)
	if err != nil {
		return nil, err
	}

	rows := make([]models.ArchiveRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, models.ArchiveRow{
			TweetID:                  rec["tweet_id"],
			InReplyToStatusID:        rec["in_reply_to_status_id"],
			InReplyToUserID:          rec["in_reply_to_user_id"],
			Timestamp:                rec["timestamp"],
			Source:                   rec["source"],
			Text:                     rec["text"],
			RetweetedStatusID:        rec["retweeted_status_id"],
			RetweetedStatusUserID:    rec["retweeted_status_user_id"],
			RetweetedStatusTimestamp: rec["retweeted_status_timestamp"],
			ExpandedURLs:             rec["expanded_urls"],
			RatingNumerator:          rec["rating_numerator"],
			RatingDenominator:        rec["rating_denominator"],
			Name:                     rec["name"],
			Doggo:                    rec["doggo"],
			Floofer:                  rec["floofer"],
			Pupper:                   rec["pupper"],
			Puppo:                    rec["puppo"],
		})
	}
	return rows, nil
}

// readPredictions parses the tab-separated prediction table.
func readPredictions(r io.Reader) ([]models.PredictionRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	records, err := readTable(cr, "image predictions", predictionColumns)
	if err != nil {
		return nil, err
	}

	rows := make([]models.PredictionRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, models.PredictionRow{
			TweetID: rec["tweet_id"],
			JPGURL:  rec["jpg_url"],
			ImgNum:  rec["img_num"],
			P1:      rec["p1"],
			P1Conf:  rec["p1_conf"],
			P1Dog:   rec["p1_dog"],
			P2:      rec["p2"],
			P2Conf:  rec["p2_conf"],
			P2Dog:   rec["p2_dog"],
			P3:      rec["p3"],
			P3Conf:  rec["p3_conf"],
			P3Dog:   rec["p3_dog"],
		})
	}
	return rows, nil
}

// readTable reads a delimited table with a header row and returns each data
// row keyed by the required column names.
func readTable(cr *csv.Reader, table string, required []string) ([]map[string]string, error) {
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, faults.Acquisition(nil, "%s: empty input", table)
	}
	if err != nil {
		return nil, faults.Acquisition(err, "%s: reading header", table)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, faults.Acquisition(nil, "%s: missing column %q", table, name)
		}
	}

	var out []map[string]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, faults.Acquisition(err, "%s: malformed row", table)
		}
		row := make(map[string]string, len(required))
		for _, name := range required {
			row[name] = rec[index[name]]
		}
		out = append(out, row)
	}
	return out, nil
}

// readMetrics decodes one JSON object per line. Blank lines are skipped.
func readMetrics(r io.Reader) ([]models.MetricsRow, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var rows []models.MetricsRow
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		var row models.MetricsRow
		if err := dec.Decode(&row); err != nil {
			return nil, faults.Acquisition(err, "metrics line %d", line)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, faults.Acquisition(err, "reading metrics")
	}
	return rows, nil
}

// decodePredictions is the body handler for a downloaded prediction table.
func decodePredictions(body io.Reader) ([]models.PredictionRow, error) {
	rows, err := readPredictions(body)
	if err != nil {
		return nil, fmt.Errorf("decoding downloaded predictions: %w", err)
	}
	return rows, nil
}
