package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"sentiment_research/internal/domain"
)

// ReportInput is everything the PDF needs about one finished job.
type ReportInput struct {
	Query     string
	Aggregate domain.AggregateResult
	Charts    Charts
}

// pdfCharts are embedded in this order when present.
var pdfCharts = []string{domain.ChartSentiment, domain.ChartTimeline}

// WritePDF renders the "Insight Report": a summary block followed by the
// sentiment and timeline charts, flowing onto further pages as needed.
func WritePDF(w io.Writer, in ReportInput) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Insight Report", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Insight Report", "", 1, "L", false, 0, "")

	agg := in.Aggregate
	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Query: " + in.Query,
		fmt.Sprintf("Records analyzed: %d", agg.TotalCount),
		fmt.Sprintf("Sentiment => Positive: %d, Neutral: %d, Negative: %d", agg.PositiveCount, agg.NeutralCount, agg.NegativeCount),
		fmt.Sprintf("Average score: %.2f", agg.AverageScore),
	}
	for _, l := range lines {
		pdf.CellFormat(0, 10, tr(l), "", 1, "L", false, 0, "")
	}

	for _, name := range pdfCharts {
		img, err := in.Charts.Get(name)
		if err != nil {
			continue
		}
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
		pdf.Ln(4)
		pdf.ImageOptions(name, pdf.GetX(), pdf.GetY(), 180, 0, true, opts, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return pdf.Output(w)
}
