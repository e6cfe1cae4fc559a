package service

import (
	"context"

	"vlstore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ator is the authenticated caller of a service operation, built by the
// handler from the JWT claims.
type Ator struct {
	UsuarioID uuid.UUID
	Username  string
	Role      string
	LojaID    *uuid.UUID
	IP        string
}

func (a Ator) IsAdmin() bool { return a.Role == model.RoleAdmin }

// Gerencia reports whether the caller has management rights (admin or gerente).
func (a Ator) Gerencia() bool {
	return a.Role == model.RoleAdmin || a.Role == model.RoleGerente
}

func (a Ator) PodeAcessarLoja(lojaID uuid.UUID) bool {
	if a.IsAdmin() {
		return true
	}
	return a.LojaID != nil && *a.LojaID == lojaID
}

// lojaDestino resolves the store a new record belongs to. Admins must name
// it; everyone else is pinned to their own store.
func (a Ator) lojaDestino(informada string) (uuid.UUID, error) {
	if informada != "" {
		id, err := uuid.Parse(informada)
		if err != nil {
			return uuid.Nil, regra("loja_id inválido")
		}
		if !a.PodeAcessarLoja(id) {
			return uuid.Nil, proibido("sem acesso a esta loja")
		}
		return id, nil
	}
	if a.LojaID == nil {
		return uuid.Nil, regra("loja_id é obrigatório")
	}
	return *a.LojaID, nil
}

// escopoLoja narrows a list filter to the stores the caller may read.
func (a Ator) escopoLoja(filtro string) (string, error) {
	if a.IsAdmin() {
		return filtro, nil
	}
	if a.LojaID == nil {
		return "", proibido("usuário sem loja vinculada")
	}
	propria := a.LojaID.String()
	if filtro != "" && filtro != propria {
		return "", proibido("sem acesso a esta loja")
	}
	return propria, nil
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}
