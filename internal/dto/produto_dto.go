package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type VariacaoRequest struct {
	Nome         string  `json:"nome"          validate:"required,max=120"`
	SKU          string  `json:"sku"           validate:"required,max=64"`
	CodigoBarras *string `json:"codigo_barras" validate:"omitempty,max=32"`
	// Preco nil inherits the product's preco_base
	Preco         *decimal.Decimal `json:"preco"          validate:"omitempty,gt=0"`
	Estoque       int              `json:"estoque"        validate:"min=0"`
	EstoqueMinimo *int             `json:"estoque_minimo" validate:"omitempty,min=0"`
}

type CriarProdutoRequest struct {
	LojaID       string            `json:"loja_id"       validate:"omitempty,uuid"`
	Nome         string            `json:"nome"          validate:"required,max=200"`
	Descricao    *string           `json:"descricao"     validate:"omitempty,max=1000"`
	Categoria    string            `json:"categoria"     validate:"required,max=60"`
	CodigoBarras *string           `json:"codigo_barras" validate:"omitempty,max=32"`
	PrecoBase    decimal.Decimal   `json:"preco_base"    validate:"required,gt=0"`
	Variacoes    []VariacaoRequest `json:"variacoes"     validate:"required,min=1,dive"`
}

type AtualizarProdutoRequest struct {
	Nome         *string          `json:"nome"          validate:"omitempty,min=1,max=200"`
	Descricao    *string          `json:"descricao"     validate:"omitempty,max=1000"`
	Categoria    *string          `json:"categoria"     validate:"omitempty,min=1,max=60"`
	CodigoBarras *string          `json:"codigo_barras" validate:"omitempty,max=32"`
	PrecoBase    *decimal.Decimal `json:"preco_base"    validate:"omitempty,gt=0"`
	Ativo        *bool            `json:"ativo"`
}

type AtualizarVariacaoRequest struct {
	Nome         *string          `json:"nome"          validate:"omitempty,min=1,max=120"`
	SKU          *string          `json:"sku"           validate:"omitempty,min=1,max=64"`
	CodigoBarras *string          `json:"codigo_barras" validate:"omitempty,max=32"`
	Preco        *decimal.Decimal `json:"preco"         validate:"omitempty,gt=0"`
	// HerdarPreco clears the variation price so preco_base applies again
	HerdarPreco   bool  `json:"herdar_preco"`
	EstoqueMinimo *int  `json:"estoque_minimo" validate:"omitempty,min=0"`
	Ativo         *bool `json:"ativo"`
}

type ProdutoFilter struct {
	Paginacao
	LojaID    string `form:"loja_id" validate:"omitempty,uuid"`
	Nome      string `form:"nome"`
	Categoria string `form:"categoria"`
	// Ativo: "true" (default) | "false" | "all"
	Ativo string `form:"ativo"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type VariacaoResponse struct {
	ID            string           `json:"id"`
	ProdutoID     string           `json:"produto_id"`
	Nome          string           `json:"nome"`
	SKU           string           `json:"sku"`
	CodigoBarras  *string          `json:"codigo_barras,omitempty"`
	Preco         *decimal.Decimal `json:"preco"`
	PrecoEfetivo  decimal.Decimal  `json:"preco_efetivo"`
	Estoque       int              `json:"estoque"`
	EstoqueMinimo int              `json:"estoque_minimo"`
	EstoqueBaixo  bool             `json:"estoque_baixo"`
	Ativo         bool             `json:"ativo"`
}

type ProdutoResponse struct {
	ID           string             `json:"id"`
	LojaID       string             `json:"loja_id"`
	Nome         string             `json:"nome"`
	Descricao    *string            `json:"descricao,omitempty"`
	Categoria    string             `json:"categoria"`
	CodigoBarras *string            `json:"codigo_barras,omitempty"`
	PrecoBase    decimal.Decimal    `json:"preco_base"`
	Ativo        bool               `json:"ativo"`
	Variacoes    []VariacaoResponse `json:"variacoes"`
	CreatedAt    string             `json:"created_at"`
}

// ConsultaPrecoResponse is the public, unauthenticated price lookup.
// No stock quantities or costs are exposed.
type ConsultaPrecoResponse struct {
	CodigoBarras string          `json:"codigo_barras"`
	Produto      string          `json:"produto"`
	Categoria    string          `json:"categoria"`
	Variacoes    []PrecoVariacao `json:"variacoes"`
}

type PrecoVariacao struct {
	Nome       string          `json:"nome"`
	SKU        string          `json:"sku"`
	Preco      decimal.Decimal `json:"preco"`
	Disponivel bool            `json:"disponivel"`
}
