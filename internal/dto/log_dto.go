package dto

import "encoding/json"

type LogFilter struct {
	Paginacao
	LojaID    string `form:"loja_id"    validate:"omitempty,uuid"`
	UsuarioID string `form:"usuario_id" validate:"omitempty,uuid"`
	Entidade  string `form:"entidade"`
	Acao      string `form:"acao"`
}

type LogResponse struct {
	ID         string          `json:"id"`
	UsuarioID  *string         `json:"usuario_id,omitempty"`
	LojaID     *string         `json:"loja_id,omitempty"`
	Acao       string          `json:"acao"`
	Entidade   string          `json:"entidade"`
	EntidadeID *string         `json:"entidade_id,omitempty"`
	Detalhes   json.RawMessage `json:"detalhes"`
	IP         string          `json:"ip,omitempty"`
	CreatedAt  string          `json:"created_at"`
}
