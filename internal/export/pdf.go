package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/eugenenazirov/stowage/internal/planner"
)

const (
	pageMargin = 15.0
	qrSize     = 35.0
	rowHeight  = 7.0
)

// manifestSummary is the payload encoded in the manifest QR code.
type manifestSummary struct {
	Container   string   `json:"container"`
	Date        string   `json:"date,omitempty"`
	Items       []string `json:"items"`
	TotalWeight float64  `json:"totalWeight"`
	TotalVolume float64  `json:"totalVolume"`
}

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"Item ID", 25, "L"},
	{"Name", 65, "L"},
	{"Mass (kg)", 25, "R"},
	{"Volume", 30, "R"},
	{"Reason", 35, "L"},
}

// WriteManifestPDF renders the manifest on Letter pages with a QR code
// summarising the shipment in the page header.
func WriteManifestPDF(w io.Writer, m planner.Manifest) error {
	qrPNG, err := manifestQR(m)
	if err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.RegisterImageOptionsReader("manifest_qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	pdf.ImageOptions("manifest_qr", pageW-pageMargin-qrSize, pageMargin, qrSize, qrSize, false,
		fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Return Manifest", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Undocking container: "+m.UndockingContainerID, "", 1, "L", false, 0, "")
	if d := formatDate(m.UndockingDate); d != "" {
		pdf.CellFormat(0, 6, "Undocking date: "+d, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Items: %d   Total weight: %.2f kg   Total volume: %.2f",
		len(m.ReturnItems), m.TotalWeight, m.TotalVolume), "", 1, "L", false, 0, "")
	pdf.SetY(pageMargin + qrSize + 5)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range pdfColumns {
		pdf.CellFormat(col.width, rowHeight, col.title, "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, ri := range m.ReturnItems {
		cells := []string{
			ri.ItemID,
			tr(ri.Name),
			fmt.Sprintf("%.2f", ri.Mass),
			fmt.Sprintf("%.2f", ri.Volume),
			ri.Reason,
		}
		for i, col := range pdfColumns {
			pdf.CellFormat(col.width, rowHeight, cells[i], "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render manifest pdf: %w", err)
	}
	return nil
}

func manifestQR(m planner.Manifest) ([]byte, error) {
	summary := manifestSummary{
		Container:   m.UndockingContainerID,
		Date:        formatDate(m.UndockingDate),
		Items:       make([]string, 0, len(m.ReturnItems)),
		TotalWeight: m.TotalWeight,
		TotalVolume: m.TotalVolume,
	}
	for _, ri := range m.ReturnItems {
		summary.Items = append(summary.Items, ri.ItemID)
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest summary: %w", err)
	}
	png, err := qrcode.Encode(string(data), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("generate QR code: %w", err)
	}
	return png, nil
}
