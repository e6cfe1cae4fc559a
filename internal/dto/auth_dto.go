package dto

type LoginRequest struct {
	// Username accepts either the username or the e-mail address
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"`
	User         UsuarioResponse `json:"user"`
}

type UsuarioResponse struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Nome      string  `json:"nome"`
	Email     *string `json:"email,omitempty"`
	Role      string  `json:"role"`
	LojaID    *string `json:"loja_id,omitempty"`
	Ativo     bool    `json:"ativo"`
	CreatedAt string  `json:"created_at"`
}

type CriarUsuarioRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Nome     string  `json:"nome"     validate:"required,max=120"`
	Email    *string `json:"email"    validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Role     string  `json:"role"     validate:"required,oneof=admin gerente operador"`
	LojaID   *string `json:"loja_id"  validate:"omitempty,uuid"`
}

// AtualizarUsuarioRequest is a partial update: nil fields are left untouched.
type AtualizarUsuarioRequest struct {
	Nome     *string `json:"nome"     validate:"omitempty,min=1,max=120"`
	Email    *string `json:"email"    validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	Role     *string `json:"role"     validate:"omitempty,oneof=admin gerente operador"`
	LojaID   *string `json:"loja_id"  validate:"omitempty,uuid"`
}

type UsuarioFilter struct {
	Paginacao
	IncluirInativos bool   `form:"incluir_inativos"`
	LojaID          string `form:"loja_id" validate:"omitempty,uuid"`
}
