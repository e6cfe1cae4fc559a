package dto

type AjustarEstoqueRequest struct {
	Delta  int    `json:"delta"  validate:"required"`
	Motivo string `json:"motivo" validate:"required,min=3,max=255"`
}

type AlertaEstoqueResponse struct {
	VariacaoID    string `json:"variacao_id"`
	ProdutoID     string `json:"produto_id"`
	Produto       string `json:"produto"`
	Variacao      string `json:"variacao"`
	SKU           string `json:"sku"`
	Estoque       int    `json:"estoque"`
	EstoqueMinimo int    `json:"estoque_minimo"`
	Faltante      int    `json:"faltante"`
}

type MovimentacaoEstoqueFilter struct {
	Paginacao
	LojaID     string `form:"loja_id"     validate:"omitempty,uuid"`
	VariacaoID string `form:"variacao_id" validate:"omitempty,uuid"`
	Tipo       string `form:"tipo"        validate:"omitempty,oneof=venda ajuste cancelamento inicial"`
}

type MovimentacaoEstoqueResponse struct {
	ID              string  `json:"id"`
	VariacaoID      string  `json:"variacao_id"`
	LojaID          string  `json:"loja_id"`
	Tipo            string  `json:"tipo"`
	Quantidade      int     `json:"quantidade"`
	EstoqueAnterior int     `json:"estoque_anterior"`
	EstoqueNovo     int     `json:"estoque_novo"`
	Motivo          string  `json:"motivo"`
	ReferenciaID    *string `json:"referencia_id,omitempty"`
	UsuarioID       *string `json:"usuario_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
}
