package exports

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/jung-kurt/gofpdf"
)

// RenderBatchLabelPDF draws one A5 landscape label with a Code128 barcode
// of the batch number.
func RenderBatchLabelPDF(label BatchLabel, printedAt time.Time) ([]byte, error) {
	number := strings.TrimSpace(label.BatchNumber)
	if number == "" {
		return nil, errors.New("batch label needs a batch number")
	}
	barcodePNG, err := renderCode128PNG(number, 1000, 220)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(label.SKUName)
	if name == "" {
		name = "-"
	}

	pdf := gofpdf.New("L", "mm", "A5", "")
	pdf.SetTitle("Batch "+number, false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	margin := 8.0
	innerW := pageW - 2*margin
	pdf.SetLineWidth(0.35)
	pdf.Rect(margin, margin, innerW, pageH-2*margin, "")

	pdf.SetXY(margin+4, margin+4)
	pdf.SetFont("Helvetica", "B", fitFontSizeForWidth(pdf, "Helvetica", "B", 30, 14, label.SKUCode, innerW-8))
	pdf.CellFormat(innerW-8, 13, label.SKUCode, "", 1, "L", false, 0, "")

	pdf.SetX(margin + 4)
	pdf.SetFont("Helvetica", "", fitFontSizeForWidth(pdf, "Helvetica", "", 16, 9, name, innerW-8))
	pdf.CellFormat(innerW-8, 9, name, "", 1, "L", false, 0, "")

	pdf.SetX(margin + 4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(30, 8, "Quantity:", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(innerW-38, 8, strconv.FormatInt(label.Quantity, 10), "", 1, "L", false, 0, "")

	pdf.SetX(margin + 4)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(innerW-8, 7, "Produced: "+label.CreatedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")

	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	imageName := "batch-barcode-" + number
	pdf.RegisterImageOptionsReader(imageName, opt, bytes.NewReader(barcodePNG))
	imgW := innerW - 24
	imgH := 34.0
	y := pageH - margin - imgH - 22
	pdf.ImageOptions(imageName, (pageW-imgW)/2, y, imgW, imgH, false, opt, 0, "")

	pdf.SetXY(margin+4, y+imgH+2)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(innerW-8, 10, number, "", 1, "C", false, 0, "")

	pdf.SetXY(margin+4, pageH-margin-7)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)
	pdf.CellFormat(innerW-8, 5, "Printed "+printedAt.Format("2006-01-02 15:04"), "", 0, "R", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func fitFontSizeForWidth(pdf *gofpdf.Fpdf, family, style string, base, min float64, text string, maxWidth float64) float64 {
	if maxWidth <= 0 {
		return min
	}
	size := base
	pdf.SetFont(family, style, size)
	for size > min && pdf.GetStringWidth(text) > maxWidth {
		size -= 0.5
		pdf.SetFont(family, style, size)
	}
	return size
}

func renderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, err
	}
	bounds := scaled.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, scaled, bounds.Min, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
