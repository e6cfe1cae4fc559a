package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// VendaFilter is bound from query string of GET /v1/vendas.
type VendaFilter struct {
	Paginacao
	LojaID  string `form:"loja_id"  validate:"omitempty,uuid"`
	CaixaID string `form:"caixa_id" validate:"omitempty,uuid"`
	Data    string `form:"data"     validate:"omitempty,datetime=2006-01-02"` // YYYY-MM-DD
	Status  string `form:"status"   validate:"omitempty,oneof=concluida cancelada all"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemVendaRequest struct {
	VariacaoID string          `json:"variacao_id" validate:"required,uuid"`
	Quantidade int             `json:"quantidade"  validate:"required,min=1"`
	Desconto   decimal.Decimal `json:"desconto"    validate:"min=0"`
}

type PagamentoRequest struct {
	Forma string          `json:"forma" validate:"required,oneof=dinheiro debito credito pix"`
	Valor decimal.Decimal `json:"valor" validate:"required,gt=0"`
}

type RegistrarVendaRequest struct {
	CaixaID    string             `json:"caixa_id"   validate:"required,uuid"`
	Itens      []ItemVendaRequest `json:"itens"      validate:"required,min=1,dive"`
	Pagamentos []PagamentoRequest `json:"pagamentos" validate:"required,min=1,dive"`
	// Desconto applies to the whole sale, after item discounts
	Desconto decimal.Decimal `json:"desconto" validate:"min=0"`
	// ClienteEmail: optional, when present the worker mails the PDF receipt
	ClienteEmail *string `json:"cliente_email" validate:"omitempty,email"`
}

type CancelarVendaRequest struct {
	Motivo string `json:"motivo" validate:"required,min=5,max=255"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemVendaResponse struct {
	VariacaoID    string          `json:"variacao_id"`
	ProdutoID     string          `json:"produto_id"`
	Descricao     string          `json:"descricao"`
	Quantidade    int             `json:"quantidade"`
	PrecoUnitario decimal.Decimal `json:"preco_unitario"`
	Desconto      decimal.Decimal `json:"desconto"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

type PagamentoResponse struct {
	Forma string          `json:"forma"`
	Valor decimal.Decimal `json:"valor"`
}

type VendaResponse struct {
	ID                    string              `json:"id"`
	Numero                int64               `json:"numero"`
	LojaID                string              `json:"loja_id"`
	CaixaID               string              `json:"caixa_id"`
	UsuarioID             string              `json:"usuario_id"`
	Subtotal              decimal.Decimal     `json:"subtotal"`
	DescontoItens         decimal.Decimal     `json:"desconto_itens"`
	Desconto              decimal.Decimal     `json:"desconto"`
	Total                 decimal.Decimal     `json:"total"`
	Troco                 decimal.Decimal     `json:"troco"`
	Status                string              `json:"status"`
	ClienteEmail          *string             `json:"cliente_email,omitempty"`
	MotivoCancelamento    *string             `json:"motivo_cancelamento,omitempty"`
	CanceladaEm           *string             `json:"cancelada_em,omitempty"`
	ComprovanteDisponivel bool                `json:"comprovante_disponivel"`
	Itens                 []ItemVendaResponse `json:"itens"`
	Pagamentos            []PagamentoResponse `json:"pagamentos"`
	CreatedAt             string              `json:"created_at"`
}
