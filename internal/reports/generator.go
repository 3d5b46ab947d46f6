package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Raventwist88/ontrakk/internal/stats"
	"github.com/jung-kurt/gofpdf"
)

const noData = "No data"

// Generator renders Stats as CSV or PDF.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders st for window. A nil st yields a report without rows.
func (g *Generator) Generate(format string, window stats.Window, st *stats.Stats, generatedAt time.Time) ([]byte, error) {
	switch format {
	case FormatCSV:
		return g.generateCSV(st)
	case FormatPDF:
		return g.generatePDF(window, st, generatedAt)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, format)
	}
}

// generateCSV writes one row per tracked day: the calorie trend joined
// with the weight logged that day.
func (g *Generator) generateCSV(st *stats.Stats) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"date", "weight_kg", "calories_intake", "calories_burned", "net_calories"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, row := range dayRows(st) {
		if err := w.Write([]string{row.date, row.weight, row.intake, row.burned, row.net}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) generatePDF(window stats.Window, st *stats.Stats, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	fontName := "Arial"

	pdf.SetFont(fontName, "", 16)
	pdf.AddPage()
	pdf.Cell(0, 10, "Progress Report")
	pdf.Ln(8)

	pdf.SetFont(fontName, "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Window: %s, generated %s", window, generatedAt.Format(time.DateOnly)))
	pdf.Ln(12)

	pdf.SetFont(fontName, "", 14)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont(fontName, "", 10)
	for _, line := range summaryLines(st) {
		pdf.Cell(0, 6, line)
		pdf.Ln(5)
	}
	pdf.Ln(7)

	if st != nil && st.Projection != nil {
		pdf.SetFont(fontName, "", 14)
		pdf.Cell(0, 8, "Projection")
		pdf.Ln(8)
		drawProjection(pdf, st.Projection, fontName)
		pdf.Ln(6)
	}

	pdf.SetFont(fontName, "", 14)
	pdf.Cell(0, 8, "Recent days")
	pdf.Ln(8)
	drawRecentDaysTable(pdf, dayRows(st), fontName)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func summaryLines(st *stats.Stats) []string {
	if st == nil {
		return []string{noData}
	}
	return []string{
		"Current weight: " + formatKg(st.CurrentWeight),
		"Starting weight: " + formatKg(st.StartingWeight),
		"Weight change: " + formatKg(st.WeightChange),
		"Average intake: " + formatKcal(st.AvgCaloriesIntake),
		"Average burned: " + formatKcal(st.AvgCaloriesBurned),
		"Daily deficit: " + formatKcal(st.DailyDeficit()),
		"Days tracked: " + strconv.Itoa(st.TotalDaysTracked),
	}
}

func drawProjection(pdf *gofpdf.Fpdf, p *stats.Projection, fontName string) {
	pdf.SetFont(fontName, "", 8)
	pdf.CellFormat(25, 6, "Day", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Weight", "1", 1, "C", false, 0, "")

	points := p.Points
	if len(points) > recentRows {
		// long horizons are sampled evenly, keeping the last day
		step := int(math.Ceil(float64(len(points)) / recentRows))
		var sampled []stats.ProjectionPoint
		for i := step - 1; i < len(points); i += step {
			sampled = append(sampled, points[i])
		}
		if last := points[len(points)-1]; sampled[len(sampled)-1].Day != last.Day {
			sampled = append(sampled, last)
		}
		points = sampled
	}
	for _, pt := range points {
		pdf.CellFormat(25, 6, strconv.Itoa(pt.Day), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, pt.Date.Format(time.DateOnly), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.1f", pt.Weight), "1", 1, "C", false, 0, "")
	}
}

func drawRecentDaysTable(pdf *gofpdf.Fpdf, rows []dayRow, fontName string) {
	if len(rows) > recentRows {
		rows = rows[len(rows)-recentRows:]
	}

	pdf.SetFont(fontName, "", 8)
	pdf.CellFormat(25, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Weight", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Intake", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Burned", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Net", "1", 1, "C", false, 0, "")

	for _, row := range rows {
		pdf.CellFormat(25, 6, row.date, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, row.weight, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, row.intake, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, row.burned, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, row.net, "1", 1, "C", false, 0, "")
	}
}

type dayRow struct {
	date, weight, intake, burned, net string
}

// dayRows joins the calorie trend with the weight trend by date.
func dayRows(st *stats.Stats) []dayRow {
	if st == nil {
		return nil
	}
	weights := make(map[string]float64, len(st.WeightTrend))
	for _, p := range st.WeightTrend {
		weights[p.Date.Format(time.DateOnly)] = p.Weight
	}

	rows := make([]dayRow, 0, len(st.CalorieTrend))
	for _, p := range st.CalorieTrend {
		date := p.Date.Format(time.DateOnly)
		row := dayRow{
			date:   date,
			intake: strconv.Itoa(p.Intake),
			burned: strconv.Itoa(p.Burned),
			net:    strconv.Itoa(p.Net),
		}
		if w, ok := weights[date]; ok {
			row.weight = fmt.Sprintf("%.1f", w)
		}
		rows = append(rows, row)
	}
	return rows
}

func formatKg(val *float64) string {
	if val == nil {
		return noData
	}
	return fmt.Sprintf("%.1f kg", math.Round(*val*10)/10)
}

func formatKcal(val *float64) string {
	if val == nil {
		return noData
	}
	return fmt.Sprintf("%d kcal", int(math.Round(*val)))
}
