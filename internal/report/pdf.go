package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"github.com/usmanhx/labinsight/internal/chart"
	"github.com/usmanhx/labinsight/pkg/models"
)

type rgb struct{ r, g, b int }

var severityFill = map[string]rgb{
	models.SeverityNormal:     {34, 197, 94},
	models.SeverityBorderline: {234, 179, 8},
	models.SeverityCritical:   {239, 68, 68},
}

// PDFRenderer writes analysis PDFs. FontPath may point at a Unicode TTF for
// non-Latin result languages; when empty the built-in Helvetica is used and
// characters outside its codepage degrade.
type PDFRenderer struct {
	FontPath string
}

const pdfFontFamily = "Helvetica"

// Render writes the analysis plus chart images to outPath.
func (r *PDFRenderer) Render(a *models.StructuredAnalysis, charts map[int]chart.CategoryCharts, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	family := pdfFontFamily
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if r.FontPath != "" {
		family = "report"
		pdf.AddUTF8Font(family, "", r.FontPath)
		pdf.AddUTF8Font(family, "B", r.FontPath)
		pdf.AddUTF8Font(family, "I", r.FontPath)
		tr = func(s string) string { return s }
	}

	pdf.AddPage()

	pdf.SetFont(family, "B", 18)
	pdf.CellFormat(0, 12, tr("Lab Report Analysis"), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	r.writePatientInfo(pdf, tr, family, a.PatientInfo)
	r.writeSection(pdf, tr, family, "Summary", a.Summary)

	for idx, category := range a.Categories {
		r.writeCategory(pdf, tr, family, category)
		if cc, ok := charts[idx]; ok {
			embedCharts(pdf, cc)
		}
	}

	if a.AbnormalAnalysis != "" {
		r.writeSection(pdf, tr, family, "Abnormal Value Analysis", a.AbnormalAnalysis)
	}
	if a.ClinicalAssociations != "" {
		r.writeSection(pdf, tr, family, "Clinical Associations", a.ClinicalAssociations)
	}
	if a.LifestyleTips != "" {
		r.writeSection(pdf, tr, family, "Lifestyle Recommendations", a.LifestyleTips)
	}

	disclaimer := a.Disclaimer
	if disclaimer == "" {
		disclaimer = models.DefaultDisclaimer
	}
	pdf.Ln(4)
	pdf.SetFont(family, "I", 8)
	pdf.SetTextColor(107, 114, 128)
	pdf.MultiCell(0, 4, tr("Disclaimer: "+disclaimer), "", "L", false)
	pdf.SetTextColor(0, 0, 0)

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (r *PDFRenderer) writePatientInfo(pdf *fpdf.Fpdf, tr func(string) string, family string, info models.PatientInfo) {
	age := "N/A"
	if info.Age != nil {
		age = fmt.Sprintf("%d", *info.Age)
	}
	gender := "N/A"
	if info.Gender != nil && *info.Gender != "" {
		gender = *info.Gender
	}
	reportDate := "N/A"
	if info.ReportDate != nil && *info.ReportDate != "" {
		reportDate = *info.ReportDate
	}

	pdf.SetFont(family, "B", 13)
	pdf.CellFormat(0, 8, tr("Patient Information"), "", 1, "L", false, 0, "")
	pdf.SetFont(family, "", 10)
	pdf.CellFormat(0, 6, tr("Age: "+age), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Gender: "+gender), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Report Date: "+reportDate), "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func (r *PDFRenderer) writeSection(pdf *fpdf.Fpdf, tr func(string) string, family, title, body string) {
	if body == "" {
		body = "Not available."
	}
	pdf.SetFont(family, "B", 13)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont(family, "", 10)
	pdf.MultiCell(0, 5, tr(body), "", "L", false)
	pdf.Ln(2)
}

func (r *PDFRenderer) writeCategory(pdf *fpdf.Fpdf, tr func(string) string, family string, category models.Category) {
	name := category.Name
	if name == "" {
		name = "Uncategorized"
	}
	pdf.SetFont(family, "B", 12)
	pdf.CellFormat(0, 8, tr(name), "", 1, "L", false, 0, "")

	if len(category.Findings) == 0 {
		pdf.SetFont(family, "", 10)
		pdf.CellFormat(0, 6, tr("No tests in this category."), "", 1, "L", false, 0, "")
		return
	}

	colWidths := []float64{28, 50, 22, 18, 34, 38}
	headers := []string{"Status", "Test", "Value", "Unit", "Reference", "Interpretation"}

	pdf.SetFont(family, "B", 8)
	pdf.SetFillColor(243, 244, 246)
	for i, h := range headers {
		pdf.CellFormat(colWidths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 8)
	for _, f := range category.Findings {
		fill, ok := severityFill[f.Severity]
		if !ok {
			fill = severityFill[models.SeverityNormal]
		}
		unit := ""
		if f.Unit != nil {
			unit = *f.Unit
		}
		refRange := f.ReferenceRange
		if f.RefSource == models.RefSourceKnowledge {
			refRange += " *"
		}

		pdf.SetFillColor(fill.r, fill.g, fill.b)
		pdf.SetTextColor(255, 255, 255)
		pdf.CellFormat(colWidths[0], 7, tr(f.Severity), "1", 0, "C", true, 0, "")
		pdf.SetTextColor(0, 0, 0)

		pdf.CellFormat(colWidths[1], 7, tr(clip(f.TestName, 34)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[2], 7, tr(clip(f.Value.String(), 14)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colWidths[3], 7, tr(clip(unit, 10)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colWidths[4], 7, tr(clip(refRange, 22)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colWidths[5], 7, tr(clip(f.Interpretation, 26)), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(2)
}

// embedCharts places the category bar chart and any gauges, scaled to the
// content width.
func embedCharts(pdf *fpdf.Fpdf, cc chart.CategoryCharts) {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentW := pageW - left - right

	if cc.Bar != "" {
		pdf.ImageOptions(cc.Bar, left, pdf.GetY(), contentW, 0, true,
			fpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}, 0, "")
		pdf.Ln(3)
	}
	for _, gauge := range cc.Gauges {
		pdf.ImageOptions(gauge, left, pdf.GetY(), contentW*0.7, 0, true,
			fpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}, 0, "")
		pdf.Ln(3)
	}
}

func clip(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes-1]) + "…"
}
