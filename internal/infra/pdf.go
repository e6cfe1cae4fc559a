package infra

// Receipt PDF rendered with go-pdf/fpdf on a narrow thermal-style page:
// store header, sale number and timestamp, item table, discounts, bold total,
// payment breakdown with change. Saved as storagePath/venda_{numero}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"vlstore/internal/model"

	"github.com/go-pdf/fpdf"
)

var rotulosForma = map[string]string{
	model.FormaDinheiro: "Dinheiro",
	model.FormaDebito:   "Débito",
	model.FormaCredito:  "Crédito",
	model.FormaPix:      "PIX",
}

// GerarComprovantePDF renders the receipt for v and returns the file path.
func GerarComprovantePDF(v *model.Venda, storagePath, nomeLoja string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: criar diretório: %w", err)
	}

	filePath := filepath.Join(storagePath, fmt.Sprintf("venda_%d.pdf", v.Numero))

	// height grows with the item count
	altura := 90.0 + 5*float64(len(v.Itens)) + 4*float64(len(v.Pagamentos))
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: altura},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr(nomeLoja), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, tr("Comprovante de Venda - sem valor fiscal"), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Venda nº %d", v.Numero)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, v.CreatedAt.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	if v.Usuario != nil {
		pdf.CellFormat(contentW, 4, tr("Operador: "+v.Usuario.Nome), "", 1, "L", false, 0, "")
	}
	if v.Status == model.VendaCancelada {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(contentW, 5, "CANCELADA", "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Produto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Qtd", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range v.Itens {
		nome := []rune(item.Descricao)
		if len(nome) > 24 {
			nome = append(nome[:23], '.')
		}
		pdf.CellFormat(col1, 5, tr(string(nome)), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", item.Quantidade), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, FormatarMoeda(item.Subtotal), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 7)
	if !v.DescontoItens.IsZero() {
		pdf.CellFormat(col1+col2, 5, "Descontos nos itens:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, "-"+FormatarMoeda(v.DescontoItens), "", 1, "R", false, 0, "")
	}
	if !v.Desconto.IsZero() {
		pdf.CellFormat(col1+col2, 5, "Desconto:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, "-"+FormatarMoeda(v.Desconto), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, FormatarMoeda(v.Total), "", 1, "R", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 7)
	for _, p := range v.Pagamentos {
		rotulo, ok := rotulosForma[p.Forma]
		if !ok {
			rotulo = p.Forma
		}
		pdf.CellFormat(col1+col2, 4, tr(rotulo+":"), "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4, FormatarMoeda(p.Valor), "", 1, "R", false, 0, "")
	}
	if v.Troco.IsPositive() {
		pdf.CellFormat(col1+col2, 4, "Troco:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4, FormatarMoeda(v.Troco), "", 1, "R", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("Obrigado pela preferência!"), "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: gravar arquivo: %w", err)
	}

	return filePath, nil
}

// ComprovantePDF adapts GerarComprovantePDF to the service's receipt generator.
type ComprovantePDF struct {
	storagePath string
	nomeLoja    string
}

func NewComprovantePDF(storagePath, nomeLoja string) *ComprovantePDF {
	return &ComprovantePDF{storagePath: storagePath, nomeLoja: nomeLoja}
}

func (c *ComprovantePDF) Gerar(v *model.Venda) (string, error) {
	return GerarComprovantePDF(v, c.storagePath, c.nomeLoja)
}
