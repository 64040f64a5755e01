package output

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"

	"github.com/cyderes/dog-ratings-pipeline/internal/models"
)

// ParquetSchema mirrors Columns. Columns that are nil for unmatched posts
// are nullable.
var ParquetSchema = arrow.NewSchema([]arrow.Field{
	{Name: "tweet_id", Type: arrow.BinaryTypes.String},
	{Name: "timestamp", Type: arrow.FixedWidthTypes.Timestamp_ms},
	{Name: "text", Type: arrow.BinaryTypes.String},
	{Name: "source", Type: arrow.BinaryTypes.String},
	{Name: "rating_numerator", Type: arrow.PrimitiveTypes.Int64},
	{Name: "rating_denominator", Type: arrow.PrimitiveTypes.Int64},
	{Name: "dog_stage", Type: arrow.BinaryTypes.String},
	{Name: "jpg_url", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "breed_of_dog", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "favorite_count", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	{Name: "retweet_count", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
}, nil)

// WriteParquet writes records as a single row group.
func WriteParquet(w io.Writer, records []models.MasterRecord) error {
	b := array.NewRecordBuilder(memory.DefaultAllocator, ParquetSchema)
	defer b.Release()

	for _, r := range records {
		b.Field(0).(*array.StringBuilder).Append(r.TweetID)
		b.Field(1).(*array.TimestampBuilder).Append(arrow.Timestamp(r.Timestamp.UnixMilli()))
		b.Field(2).(*array.StringBuilder).Append(r.Text)
		b.Field(3).(*array.StringBuilder).Append(r.Source)
		b.Field(4).(*array.Int64Builder).Append(int64(r.RatingNumerator))
		b.Field(5).(*array.Int64Builder).Append(int64(r.RatingDenominator))
		b.Field(6).(*array.StringBuilder).Append(string(r.Stage))
		appendOptString(b.Field(7).(*array.StringBuilder), r.JPGURL)
		appendOptString(b.Field(8).(*array.StringBuilder), r.Breed)
		appendOptInt(b.Field(9).(*array.Int64Builder), r.FavoriteCount)
		appendOptInt(b.Field(10).(*array.Int64Builder), r.RetweetCount)
	}

	rec := b.NewRecord()
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	fw, err := pqarrow.NewFileWriter(ParquetSchema, w, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("creating parquet writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("writing parquet records: %w", err)
	}
	return fw.Close()
}

// WriteParquetFile writes records to path, replacing any existing file.
func WriteParquetFile(path string, records []models.MasterRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	// Hide f's Close from the parquet writer so f is closed exactly once.
	if err := WriteParquet(struct{ io.Writer }{f}, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func appendOptString(b *array.StringBuilder, s *string) {
	if s == nil {
		b.AppendNull()
		return
	}
	b.Append(*s)
}

func appendOptInt(b *array.Int64Builder, n *int64) {
	if n == nil {
		b.AppendNull()
		return
	}
	b.Append(*n)
}
