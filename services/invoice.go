package services

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gamershop/gamershop/models"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// WriteInvoice renders an order graph as a PDF invoice
func WriteInvoice(w io.Writer, order *models.Order) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Store info
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, "GamerShop")
	pdf.SetFont("Arial", "", 12)
	pdf.Ln(8)
	pdf.Cell(100, 8, "Email: support@gamershop.com")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(100, 10, "INVOICE")
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(50, 8, "Order ID: "+strconv.Itoa(int(order.ID)))
	pdf.Cell(60, 8, "Order Date: "+order.CreatedAt.Format("2006-01-02 15:04:05"))
	pdf.Ln(8)
	if order.Payment != nil {
		pdf.Cell(50, 8, "Payment: "+order.Payment.Method)
	}
	pdf.Cell(60, 8, "Status: "+order.Status)
	pdf.Ln(8)
	if order.Payment != nil && order.Payment.Entity != nil && order.Payment.Reference != nil {
		pdf.Cell(100, 8, fmt.Sprintf("Multibanco entity %s, reference %s", *order.Payment.Entity, *order.Payment.Reference))
		pdf.Ln(8)
	}

	if order.User != nil {
		pdf.SetFont("Arial", "B", 13)
		pdf.Cell(100, 8, "Billed To:")
		pdf.Ln(7)
		pdf.SetFont("Arial", "", 12)
		pdf.Cell(100, 8, tr(order.User.FirstName+" "+order.User.LastName))
		pdf.Ln(6)
		pdf.Cell(100, 8, order.User.Email)
		pdf.Ln(8)
	}

	if s := order.Shipping; s != nil {
		pdf.SetFont("Arial", "B", 13)
		pdf.Cell(100, 8, "Shipping ("+s.Method+"):")
		pdf.Ln(7)
		pdf.SetFont("Arial", "", 12)
		if s.Method == models.ShippingMethodPickup {
			pdf.Cell(100, 8, "Store pickup")
			pdf.Ln(6)
		} else {
			if s.FullName != "" {
				pdf.Cell(100, 8, tr(s.FullName))
				pdf.Ln(6)
			}
			pdf.Cell(100, 8, tr(s.Address))
			pdf.Ln(6)
			pdf.Cell(100, 8, tr(s.City+", "+s.PostalCode+", "+s.Country))
			pdf.Ln(6)
		}
		pdf.Ln(4)
	}

	// Items table
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(70, 8, "Product", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 8, "Price", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 8, "Total", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 12)
	subtotal := decimal.Zero
	for _, item := range order.Items {
		name := fmt.Sprintf("Product #%d", item.ProductID)
		if item.Product != nil {
			name = item.Product.Name
		}
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
		pdf.CellFormat(70, 8, tr(name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, strconv.Itoa(item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 8, item.Price.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, line.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	summary := [][2]string{{"Subtotal:", subtotal.StringFixed(2)}}
	if order.Shipping != nil {
		summary = append(summary, [2]string{"Shipping:", order.Shipping.Cost.StringFixed(2)})
	}
	if order.DiscountAmount.Valid {
		summary = append(summary, [2]string{"Discount:", "-" + order.DiscountAmount.Decimal.StringFixed(2)})
	}
	for _, row := range summary {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(120, 8, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(30, 8, row[1], "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(120, 10, "Grand Total:", "", 0, "L", false, 0, "")
	pdf.CellFormat(30, 10, order.TotalAmount.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 12)
	pdf.Cell(0, 10, "Thank you for shopping with GamerShop!")

	return pdf.Output(w)
}
