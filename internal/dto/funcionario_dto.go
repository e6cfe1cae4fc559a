package dto

type CriarFuncionarioRequest struct {
	// LojaID is required for admins; gerentes always create in their own store
	LojaID    string  `json:"loja_id"    validate:"omitempty,uuid"`
	UsuarioID *string `json:"usuario_id" validate:"omitempty,uuid"`
	Nome      string  `json:"nome"       validate:"required,max=120"`
	CPF       string  `json:"cpf"        validate:"required"`
	Cargo     string  `json:"cargo"      validate:"required,max=60"`
	Telefone  *string `json:"telefone"   validate:"omitempty,max=20"`
	Email     *string `json:"email"      validate:"omitempty,email"`
}

type AtualizarFuncionarioRequest struct {
	UsuarioID *string `json:"usuario_id" validate:"omitempty,uuid"`
	Nome      *string `json:"nome"       validate:"omitempty,min=1,max=120"`
	Cargo     *string `json:"cargo"      validate:"omitempty,min=1,max=60"`
	Telefone  *string `json:"telefone"   validate:"omitempty,max=20"`
	Email     *string `json:"email"      validate:"omitempty,email"`
	Ativo     *bool   `json:"ativo"`
}

type FuncionarioResponse struct {
	ID        string  `json:"id"`
	LojaID    string  `json:"loja_id"`
	UsuarioID *string `json:"usuario_id,omitempty"`
	Nome      string  `json:"nome"`
	CPF       string  `json:"cpf"`
	Cargo     string  `json:"cargo"`
	Telefone  *string `json:"telefone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Ativo     bool    `json:"ativo"`
	CreatedAt string  `json:"created_at"`
}

type FuncionarioFilter struct {
	Paginacao
	LojaID          string `form:"loja_id" validate:"omitempty,uuid"`
	Nome            string `form:"nome"`
	IncluirInativos bool   `form:"incluir_inativos"`
}
