package reports

import (
	"io"

	"github.com/jung-kurt/gofpdf"
)

// Fixed column X offsets and vertical layout, in points on a Letter page.
var pdfColumnX = []float64{100, 200, 300, 400}

const (
	pdfBannerY     = 40.0
	pdfTitleY      = 92.0
	pdfHeaderY     = 112.0
	pdfFirstRowY   = 132.0
	pdfLineStep    = 20.0
	pdfBottomSlack = 50.0 // break to a new page once the cursor gets this close to the bottom
	pdfResetY      = 42.0
)

// WritePDF emits the paginated report: a centered company banner, a title, a
// fixed-coordinate column header, then one text line per row. The cursor
// walks down the page and breaks to a fresh page (resetting position and
// font) when it crosses the bottom threshold. After the last row the running
// total is printed; total is the store-side aggregate over the full record
// set and does not depend on where page breaks fell. With zero rows the
// output is still a well-formed document: banner, header and a zero total.
func WritePDF(w io.Writer, company, title string, rows []Row, total float64) error {
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetTitle(title, false)
	pdf.AddPage()
	_, pageHeight := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(0, pdfBannerY-16)
	pdf.CellFormat(0, 16, company, "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(pdfColumnX[0], pdfTitleY, title)

	pdf.SetFont("Helvetica", "", 10)
	for i, name := range Columns {
		pdf.Text(pdfColumnX[i], pdfHeaderY, name)
	}

	y := pdfFirstRowY
	for _, row := range rows {
		pdf.Text(pdfColumnX[0], y, formatAmount(row.Amount))
		pdf.Text(pdfColumnX[1], y, row.Description)
		pdf.Text(pdfColumnX[2], y, row.Category)
		pdf.Text(pdfColumnX[3], y, formatDate(row.Date))
		y += pdfLineStep
		if y > pageHeight-pdfBottomSlack {
			pdf.AddPage()
			pdf.SetFont("Helvetica", "", 10)
			y = pdfResetY
		}
	}

	pdf.Text(pdfColumnX[0], y+10, "Total: "+formatAmount(total))

	return pdf.Output(w)
}
