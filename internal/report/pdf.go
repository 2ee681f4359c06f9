package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/pcprep/pcprep-api/internal/domain"
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"Parent", 40},
	{"Item", 60},
	{"Qty", 14},
	{"Status", 22},
	{"Verifier", 30},
	{"Verified at", 24},
}

// WritePDF renders a printable report: a summary block followed by one table
// per selected root.
func WritePDF(w io.Writer, event domain.Event, tree domain.EventTree, loc *time.Location) error {
	stats := domain.ComputeStats(tree)
	rows := Rows(tree, loc)

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(event.Title, true)
	pdf.SetCreationDate(tree.GeneratedAt)
	pdf.SetAutoPageBreak(true, 15)

	pdf.SetHeaderFunc(func() {
		pdf.SetFillColor(0, 62, 107)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 12, tr("Préparation matériel - Rapport"), "", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetX(-90)
		label := fmt.Sprintf("%s | %s", event.Title, event.Date.Format("2006-01-02"))
		pdf.CellFormat(80, 12, tr(label), "", 1, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "T", 0, "R", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr("Synthèse"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	summary := fmt.Sprintf("Total: %d    OK: %d    Non conforme: %d    A faire: %d    (%d%%)",
		stats.TotalItems, stats.OK, stats.NotOK, stats.Pending, stats.Percent)
	pdf.CellFormat(0, 7, summary, "", 1, "L", false, 0, "")
	pdf.Ln(3)

	for _, root := range stats.Roots {
		line := fmt.Sprintf("%s: %d/%d", root.Name, root.OK, root.Total)
		if root.Loaded {
			line += fmt.Sprintf(" - chargé (%s)", root.VehicleName)
		}
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(243, 146, 0)
	for _, c := range pdfColumns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, r := range rows {
		values := []string{r.Parent, r.Item, r.Quantity, string(r.Status), r.Verifier, r.VerifiedAt}
		for i, c := range pdfColumns {
			pdf.CellFormat(c.width, 6, tr(truncate(values[i], 36)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf.Output -> %w", err)
	}

	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}

	return string(r[:max])
}
