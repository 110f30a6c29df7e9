package services

import (
	"bytes"
	"fmt"

	"mercaplaza/internal/models"

	"github.com/jung-kurt/gofpdf"
)

// renderInvoicePDF produces the printable representation of an invoice:
// issuer block, recipient block, concept line, and the subtotal/VAT/total
// table. Amounts are taken verbatim from the persisted invoice.
func renderInvoicePDF(invoice *models.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	marginX := 20.0
	marginY := 20.0
	pdf.SetMargins(marginX, marginY, marginX)
	pdf.SetAutoPageBreak(true, marginY)

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(33, 37, 41)

	title := "PLATFORM FEE INVOICE"
	if invoice.InvoiceType == models.InvoiceTypeSellerCommission {
		title = "COMMISSION INVOICE"
	}
	pdf.SetXY(marginX, marginY)
	pdf.Cell(0, 10, title)
	pdf.Ln(15)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Invoice Number: %s", invoice.InvoiceNumber))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Issued: %s", invoice.IssuedAt.Format("02-Jan-2006")))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", invoice.Status))
	pdf.Ln(12)

	renderParty(pdf, "FROM:", invoice.Issuer)
	renderParty(pdf, "TO:", invoice.Recipient)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)

	headers := []string{"Concept", "Subtotal", "VAT", "Total"}
	colWidths := []float64{80, 30, 30, 30}
	for i, header := range headers {
		pdf.CellFormat(colWidths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(255, 255, 255)
	pdf.CellFormat(colWidths[0], 8, invoice.Concept, "1", 0, "L", false, 0, "")
	pdf.CellFormat(colWidths[1], 8, fmt.Sprintf("%.2f", invoice.Subtotal), "1", 0, "R", false, 0, "")
	pdf.CellFormat(colWidths[2], 8, fmt.Sprintf("%.2f", invoice.VATAmount), "1", 0, "R", false, 0, "")
	pdf.CellFormat(colWidths[3], 8, fmt.Sprintf("%.2f", invoice.TotalAmount), "1", 0, "R", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(110, 8, "", "", 0, "", false, 0, "")
	pdf.CellFormat(30, 8, "TOTAL", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", invoice.TotalAmount), "1", 0, "R", false, 0, "")
	pdf.Ln(8)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", invoice.InvoiceNumber, err)
	}
	return buf.Bytes(), nil
}

func renderParty(pdf *gofpdf.Fpdf, label string, party models.Party) {
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 8, label)
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, party.Name)
	pdf.Ln(6)
	if party.Document != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Document: %s", party.Document))
		pdf.Ln(6)
	}
	if party.Address != "" {
		pdf.Cell(0, 6, party.Address)
		pdf.Ln(6)
	}
	if party.Email != "" {
		pdf.Cell(0, 6, party.Email)
		pdf.Ln(6)
	}
	pdf.Ln(4)
}
