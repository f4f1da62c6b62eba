package infra

// pdf.go: ticket PDF generation using go-pdf/fpdf.
// Thermal receipt-style layout:
//   - Business name header
//   - Sale number, state and timestamp
//   - Item table (product name, quantity, subtotal) with promotion messages
//   - Subtotal, discounts, taxes, bold total, pending payment
//   - QR code with the sale number
//
// The output file is saved to storagePath/ticket_{numero}.pdf.

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"despensa/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

// GenerarTicketPDF renders the receipt of a sale and returns the path of the
// written file. Items must have Producto preloaded for names to print.
func GenerarTicketPDF(venta *model.Venta, comercio, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	filePath := filepath.Join(storagePath, fmt.Sprintf("ticket_%s.pdf", venta.Numero))

	// 74mm wide thermal paper; height grows with the number of lines
	alto := 120.0 + float64(len(venta.Items))*9
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: alto},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr(comercio), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, tr("Venta N° "+venta.Numero), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, venta.CreatedAt.Format("02/01/2006  15:04")+"  "+venta.Estado, "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Items ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Producto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Subtotal", "B", 1, "R", false, 0, "")

	for _, item := range venta.Items {
		nombre := item.ProductoID.String()[:8]
		if item.Producto != nil {
			nombre = item.Producto.Nombre
		}
		if len([]rune(nombre)) > 22 {
			nombre = string([]rune(nombre)[:21]) + "."
		}
		pdf.SetFont("Helvetica", "", 7)
		pdf.CellFormat(col1, 5, tr(nombre), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", item.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, "$"+item.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")

		pdf.SetFont("Helvetica", "I", 6)
		for _, p := range item.PromocionesAplicadas {
			pdf.CellFormat(contentW, 3.5, tr("  "+p.Mensaje), "", 1, "L", false, 0, "")
		}
		if item.CantidadDevuelta > 0 {
			pdf.CellFormat(contentW, 3.5, fmt.Sprintf("  devueltas: %d", item.CantidadDevuelta), "", 1, "L", false, 0, "")
		}
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	fila := func(label, valor string) {
		pdf.CellFormat(col1+col2, 4.5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4.5, valor, "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "", 7)
	fila("Subtotal:", "$"+venta.Subtotal.StringFixed(2))
	if !venta.Descuento.IsZero() {
		fila("Descuento:", "-$"+venta.Descuento.StringFixed(2))
	}
	if !venta.Impuestos.IsZero() {
		fila(fmt.Sprintf("Impuestos (%s%%):", venta.TasaImpuesto.String()), "$"+venta.Impuestos.StringFixed(2))
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "$"+venta.Total.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	fila("Pago ("+venta.MetodoPago+"):", "$"+venta.MontoPagado.StringFixed(2))
	if venta.PagoPendiente.IsPositive() {
		fila("Saldo pendiente:", "$"+venta.PagoPendiente.StringFixed(2))
	}

	// ── QR ───────────────────────────────────────────────────────────────────
	png, err := qrcode.Encode(venta.Numero, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("pdf: qr: %w", err)
	}
	nombreQR := "qr_" + venta.Numero
	pdf.RegisterImageOptionsReader(nombreQR, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	pdf.Ln(2)
	lado := 24.0
	pdf.ImageOptions(nombreQR, (pageW-lado)/2, pdf.GetY(), lado, lado, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("¡Gracias por su compra!"), "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}
