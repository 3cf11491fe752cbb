package orders

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"time"

	"meridia/globals"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// receiptSignature lets pickup staff verify a printed receipt offline.
func receiptSignature(orderID, orderNumber string) string {
	mac := hmac.New(sha256.New, []byte(globals.JwtSecret))
	mac.Write([]byte(orderID + "|" + orderNumber))
	return hex.EncodeToString(mac.Sum(nil))[:16]
}

// Receipt renders the order as a PDF with a signed QR code for pickup.
func Receipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	order, err := loadForCaller(ctx, r, ps.ByName("orderid"))
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	qrPayload := fmt.Sprintf("%s|%s|%s", order.OrderID, order.OrderNumber,
		receiptSignature(order.OrderID, order.OrderNumber))
	qrPNG, err := qrcode.Encode(qrPayload, qrcode.Medium, 256)
	if err != nil {
		log.Println("Receipt qr error:", err)
		http.Error(w, "Failed to render receipt", http.StatusInternalServerError)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "Order Receipt")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, "Order: "+order.OrderNumber)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Placed: "+order.CreatedAt.Format("2006-01-02 15:04"))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Pickup date: "+order.PickupDate)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Status: "+order.Status)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(95, 6, "Buyer")
	pdf.Cell(95, 6, "Seller")
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(95, 5, order.Buyer.Name)
	pdf.Cell(95, 5, order.Seller.Name)
	pdf.Ln(5)
	pdf.Cell(95, 5, order.Buyer.PhoneNumber)
	pdf.Cell(95, 5, order.Seller.PhoneNumber)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(90, 7, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 7, "Cost", "1", 0, "R", false, 0, "")
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range order.Items {
		pdf.CellFormat(90, 7, item.ProductName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", item.TotalQuantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, fmt.Sprintf("$%.2f", item.TotalCost), "1", 0, "R", false, 0, "")
		pdf.Ln(7)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(120, 8, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, fmt.Sprintf("$%.2f", order.TotalCost), "1", 0, "R", false, 0, "")
	pdf.Ln(14)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("receipt-qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("receipt-qr", 80, pdf.GetY(), 40, 40, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		log.Println("Receipt pdf error:", err)
		http.Error(w, "Failed to render receipt", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s.pdf", order.OrderNumber))
	w.Write(buf.Bytes())
}
