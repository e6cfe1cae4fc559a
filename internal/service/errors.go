package service

import "errors"

// Error categories. Handlers map them to HTTP status codes with errors.Is;
// the message of the wrapping Erro is what the client sees.
var (
	ErrNaoEncontrado = errors.New("não encontrado")
	ErrConflito      = errors.New("conflito")
	ErrRegraNegocio  = errors.New("regra de negócio violada")
	ErrCredenciais   = errors.New("credenciais inválidas")
	ErrProibido      = errors.New("acesso negado")
)

// Erro carries a user-facing message and one of the categories above.
type Erro struct {
	Tipo error
	Msg  string
}

func (e *Erro) Error() string { return e.Msg }
func (e *Erro) Unwrap() error { return e.Tipo }

func naoEncontrado(msg string) error { return &Erro{Tipo: ErrNaoEncontrado, Msg: msg} }
func conflito(msg string) error      { return &Erro{Tipo: ErrConflito, Msg: msg} }
func regra(msg string) error         { return &Erro{Tipo: ErrRegraNegocio, Msg: msg} }
func proibido(msg string) error      { return &Erro{Tipo: ErrProibido, Msg: msg} }
