package reports

import (
	"time"

	"github.com/Raventwist88/ontrakk/internal/stats"
)

const (
	FormatPDF = "pdf"
	FormatCSV = "csv"
)

// recentRows bounds the day table in the PDF.
const recentRows = 14

// Report is a rendered stats export.
type Report struct {
	Format      string
	Window      stats.Window
	GeneratedAt time.Time
	Data        []byte
}

func (r *Report) ContentType() string {
	if r.Format == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Filename is e.g. ontrakk-stats-30d-2024-01-10.csv.
func (r *Report) Filename() string {
	return "ontrakk-stats-" + string(r.Window) + "-" + r.GeneratedAt.Format(time.DateOnly) + "." + r.Format
}
