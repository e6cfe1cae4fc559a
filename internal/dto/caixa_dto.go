package dto

import "github.com/shopspring/decimal"

type AbrirCaixaRequest struct {
	// LojaID is required for admins; everyone else opens in their own store
	LojaID        string          `json:"loja_id"        validate:"omitempty,uuid"`
	ValorAbertura decimal.Decimal `json:"valor_abertura" validate:"min=0"`
}

type MovimentacaoManualRequest struct {
	Tipo      string          `json:"tipo"      validate:"required,oneof=suprimento sangria"`
	Valor     decimal.Decimal `json:"valor"     validate:"required,gt=0"`
	Descricao string          `json:"descricao" validate:"required,max=255"`
}

// DeclaracaoRequest is the blind count: what the operator physically counted.
type DeclaracaoRequest struct {
	Dinheiro decimal.Decimal `json:"dinheiro" validate:"min=0"`
	Debito   decimal.Decimal `json:"debito"   validate:"min=0"`
	Credito  decimal.Decimal `json:"credito"  validate:"min=0"`
	Pix      decimal.Decimal `json:"pix"      validate:"min=0"`
}

type FecharCaixaRequest struct {
	Declaracao  DeclaracaoRequest `json:"declaracao"`
	Observacoes *string           `json:"observacoes" validate:"omitempty,max=1000"`
}

type ValoresPorForma struct {
	Dinheiro decimal.Decimal `json:"dinheiro"`
	Debito   decimal.Decimal `json:"debito"`
	Credito  decimal.Decimal `json:"credito"`
	Pix      decimal.Decimal `json:"pix"`
	Total    decimal.Decimal `json:"total"`
}

// CaixaResponse never carries expected values, so it is safe to show to the
// operator while the caixa is open.
type CaixaResponse struct {
	ID            string          `json:"id"`
	LojaID        string          `json:"loja_id"`
	UsuarioID     string          `json:"usuario_id"`
	ValorAbertura decimal.Decimal `json:"valor_abertura"`
	Status        string          `json:"status"`
	Classificacao *string         `json:"classificacao,omitempty"`
	AbertoEm      string          `json:"aberto_em"`
	FechadoEm     *string         `json:"fechado_em,omitempty"`
}

type FecharCaixaResponse struct {
	CaixaID       string          `json:"caixa_id"`
	Esperado      ValoresPorForma `json:"esperado"`
	Declarado     ValoresPorForma `json:"declarado"`
	Diferenca     decimal.Decimal `json:"diferenca"`
	DiferencaPct  decimal.Decimal `json:"diferenca_pct"`
	Classificacao string          `json:"classificacao"`
	Observacoes   *string         `json:"observacoes,omitempty"`
	FechadoEm     string          `json:"fechado_em"`
}

type MovimentacaoCaixaResponse struct {
	ID             string          `json:"id"`
	Tipo           string          `json:"tipo"`
	FormaPagamento string          `json:"forma_pagamento"`
	Valor          decimal.Decimal `json:"valor"`
	Descricao      string          `json:"descricao"`
	ReferenciaID   *string         `json:"referencia_id,omitempty"`
	UsuarioID      string          `json:"usuario_id"`
	CreatedAt      string          `json:"created_at"`
}

type RelatorioCaixaResponse struct {
	Caixa         CaixaResponse               `json:"caixa"`
	Esperado      ValoresPorForma             `json:"esperado"`
	Declarado     *ValoresPorForma            `json:"declarado,omitempty"`
	Diferenca     *decimal.Decimal            `json:"diferenca,omitempty"`
	DiferencaPct  *decimal.Decimal            `json:"diferenca_pct,omitempty"`
	Observacoes   *string                     `json:"observacoes,omitempty"`
	TotalVendas   int64                       `json:"total_vendas"`
	Suprimentos   decimal.Decimal             `json:"suprimentos"`
	Sangrias      decimal.Decimal             `json:"sangrias"`
	Movimentacoes []MovimentacaoCaixaResponse `json:"movimentacoes"`
}

type CaixaHistoricoFilter struct {
	Paginacao
	LojaID    string `form:"loja_id"    validate:"omitempty,uuid"`
	UsuarioID string `form:"usuario_id" validate:"omitempty,uuid"`
	Status    string `form:"status"     validate:"omitempty,oneof=aberto fechado"`
}
