package dto

type CriarLojaRequest struct {
	Nome     string  `json:"nome"     validate:"required,max=120"`
	CNPJ     string  `json:"cnpj"     validate:"required"`
	Endereco *string `json:"endereco" validate:"omitempty,max=255"`
	Telefone *string `json:"telefone" validate:"omitempty,max=20"`
}

type AtualizarLojaRequest struct {
	Nome     *string `json:"nome"     validate:"omitempty,min=1,max=120"`
	Endereco *string `json:"endereco" validate:"omitempty,max=255"`
	Telefone *string `json:"telefone" validate:"omitempty,max=20"`
	Ativo    *bool   `json:"ativo"`
}

type LojaResponse struct {
	ID        string  `json:"id"`
	Nome      string  `json:"nome"`
	CNPJ      string  `json:"cnpj"`
	Endereco  *string `json:"endereco,omitempty"`
	Telefone  *string `json:"telefone,omitempty"`
	Ativo     bool    `json:"ativo"`
	CreatedAt string  `json:"created_at"`
}
