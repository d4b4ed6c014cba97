package orders

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"storefront/models"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Invoicer renders order invoices as PDF. Each invoice carries a QR code with
// a signed payload so a printed copy can be checked against the store.
type Invoicer struct {
	secret []byte
}

func NewInvoicer(secret []byte) *Invoicer {
	return &Invoicer{secret: secret}
}

func (inv *Invoicer) sign(data string) string {
	h := hmac.New(sha256.New, inv.secret)
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// QRPayload returns orderID|total|signature.
func (inv *Invoicer) QRPayload(o *models.OrderView) string {
	data := fmt.Sprintf("%s|%.2f", o.ID, o.Total)
	return data + "|" + inv.sign(data)
}

// VerifyPayload checks a scanned payload and returns the order ID it names.
func (inv *Invoicer) VerifyPayload(payload string) (string, bool) {
	i := strings.LastIndex(payload, "|")
	if i < 0 {
		return "", false
	}
	data, sig := payload[:i], payload[i+1:]
	if !hmac.Equal([]byte(sig), []byte(inv.sign(data))) {
		return "", false
	}
	orderID, _, _ := strings.Cut(data, "|")
	return orderID, true
}

func (inv *Invoicer) Render(o *models.OrderView) ([]byte, error) {
	qrPNG, err := qrcode.Encode(inv.QRPayload(o), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("generate QR code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Invoice")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Order: %s", o.ID))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Date: %s", o.CreatedAt.Format("2006-01-02 15:04")))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Status: %s", o.Status))
	pdf.Ln(8)
	pdf.MultiCell(120, 8, fmt.Sprintf("Ship to: %s", o.ShippingAddress), "", "L", false)
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(90, 8, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Unit", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, it := range o.Items {
		pdf.CellFormat(90, 8, it.Name, "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%d", it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", it.Price), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", models.SumItems([]models.OrderItem{it.OrderItem})), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(140, 10, "Total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(30, 10, fmt.Sprintf("%.2f", o.Total), "T", 1, "R", false, 0, "")

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 20, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}
