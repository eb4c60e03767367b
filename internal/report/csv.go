package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"sentiment_research/internal/domain"
)

var csvHeader = []string{"source", "location", "sentiment", "score", "content"}

var flatten = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", ",", " ")

// WriteCSV writes one row per record. Scores use two decimals and content is
// flattened onto a single line.
func WriteCSV(w io.Writer, records []domain.NormalizedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Source,
			r.AuthorLocation,
			string(r.Label),
			strconv.FormatFloat(r.Score, 'f', 2, 64),
			flatten.Replace(r.Text),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
