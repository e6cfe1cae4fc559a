package model

import (
	"time"

	"github.com/google/uuid"
)

// Stock movement types.
const (
	EstoqueVenda        = "venda"
	EstoqueAjuste       = "ajuste"
	EstoqueCancelamento = "cancelamento"
	EstoqueInicial      = "inicial"
)

// MovimentacaoEstoque records every change to a variation's stock.
type MovimentacaoEstoque struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VariacaoID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	LojaID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	Tipo            string     `gorm:"type:varchar(20);not null"`
	Quantidade      int        `gorm:"not null"` // positive = entrada, negative = saída
	EstoqueAnterior int        `gorm:"not null"`
	EstoqueNovo     int        `gorm:"not null"`
	Motivo          string
	ReferenciaID    *uuid.UUID `gorm:"type:uuid"`
	UsuarioID       *uuid.UUID `gorm:"type:uuid"`
	CreatedAt       time.Time

	Variacao *Variacao `gorm:"foreignKey:VariacaoID"`
}

func (MovimentacaoEstoque) TableName() string { return "movimentacoes_estoque" }
