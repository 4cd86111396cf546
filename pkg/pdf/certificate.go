package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData carries the fields printed on a retirement certificate
type CertificateData struct {
	CertificateID string
	ProjectTitle  string
	TokenID       string
	AmountTons    int64
	RetiredBy     string
	RetiredAt     time.Time
	TxHash        string
}

// RetirementCertificate renders a one-page retirement certificate.
func RetirementCertificate(data CertificateData) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 28)
	pdf.CellFormat(0, 30, "Certificate of Carbon Credit Retirement", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 10, fmt.Sprintf("Certificate No. %s", data.CertificateID), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, "This certifies the permanent retirement of", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 14, fmt.Sprintf("%d tCO2e", data.AmountTons), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("from the project \"%s\"", data.ProjectTitle), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	rows := [][2]string{
		{"Token ID", data.TokenID},
		{"Retired by", data.RetiredBy},
		{"Retired on", data.RetiredAt.Format("2 January 2006")},
		{"Transaction", data.TxHash},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(90, 8, row[0], "", 0, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, "  "+row[1], "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
