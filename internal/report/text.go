package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
)

var heading = color.New(color.Bold, color.FgCyan)

// topN limits the per-breed tables printed to a terminal.
const topN = 10

// WriteText renders r for a terminal. Colors follow fatih/color's
// detection, so they are dropped when w is not a TTY.
func WriteText(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	p := &printer{w: tw}

	p.heading(fmt.Sprintf("Master table: %d records", r.Records))
	p.line("column\tcount\tmean\tstd\tmin\t25%\t50%\t75%\tmax\t")
	for _, s := range r.Columns {
		p.line(fmt.Sprintf("%s\t%d\t%.2f\t%.2f\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t",
			s.Column, s.Count, s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max))
	}

	p.heading("Retweet/favorite correlation")
	if r.RetweetFavoriteCorrelation != nil {
		p.line(fmt.Sprintf("pearson r\t%.3f\t", *r.RetweetFavoriteCorrelation))
	} else {
		p.line("pearson r\tn/a\t")
	}

	p.heading("Sources")
	for _, s := range r.Sources {
		p.line(fmt.Sprintf("%s\t%d\t%.0f%%\t", s.Value, s.Count, 100*s.Share))
	}

	p.heading("Life stages")
	for _, s := range r.Stages {
		p.line(fmt.Sprintf("%s\t%d\t%.0f%%\t", s.Value, s.Count, 100*s.Share))
	}

	if n := len(r.EngagementByBreed); n > 0 {
		p.heading("Highest mean retweets by breed")
		p.line("breed\tposts\tretweets\tfavorites\t")
		for i := n - 1; i >= 0 && i >= n-topN; i-- {
			b := r.EngagementByBreed[i]
			p.line(fmt.Sprintf("%s\t%d\t%.0f\t%.0f\t", b.Breed, b.Count, b.MeanRetweets, b.MeanFavorite))
		}
	}

	p.heading(fmt.Sprintf("Mean rating for breeds with more than %d posts", r.MinBreedCount))
	for _, b := range r.RatingByBreed {
		p.line(fmt.Sprintf("%s\t%d\t%.2f\t", b.Breed, b.Count, b.MeanRating))
	}
	if r.FilteredMeanRating != nil {
		p.line(fmt.Sprintf("all of the above\t\t%.2f\t", *r.FilteredMeanRating))
	}

	if p.err != nil {
		return p.err
	}
	return tw.Flush()
}

// printer keeps the first write error so the rendering code stays linear.
type printer struct {
	w   *tabwriter.Writer
	err error
}

func (p *printer) heading(s string) {
	if p.err != nil {
		return
	}
	if err := p.w.Flush(); err != nil {
		p.err = err
		return
	}
	_, p.err = heading.Fprintf(p.w, "\n%s\n", s)
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}

// WriteJSONFile writes r as indented JSON, replacing any existing file.
func WriteJSONFile(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
