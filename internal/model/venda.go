package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	VendaConcluida = "concluida"
	VendaCancelada = "cancelada"
)

// Venda is a completed sale. Subtotal already has item discounts applied;
// Total = Subtotal - Desconto.
type Venda struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Numero        int64           `gorm:"uniqueIndex;not null"`
	LojaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	CaixaID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	UsuarioID     uuid.UUID       `gorm:"type:uuid;not null"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DescontoItens decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Desconto      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Troco         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Status        string          `gorm:"type:varchar(20);not null;default:'concluida';index"`
	ClienteEmail  *string
	// ComprovantePath is the rendered PDF receipt, set by the worker
	ComprovantePath    *string
	MotivoCancelamento *string
	CanceladaEm        *time.Time
	CreatedAt          time.Time `gorm:"index"`
	UpdatedAt          time.Time

	Itens      []VendaItem      `gorm:"foreignKey:VendaID"`
	Pagamentos []VendaPagamento `gorm:"foreignKey:VendaID"`
	Usuario    *Usuario         `gorm:"foreignKey:UsuarioID"`
}

// VendaItem snapshots price and description at sale time.
type VendaItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VendaID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	VariacaoID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProdutoID     uuid.UUID       `gorm:"type:uuid;not null"`
	Descricao     string          `gorm:"not null"`
	Quantidade    int             `gorm:"not null"`
	PrecoUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Desconto      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (VendaItem) TableName() string { return "venda_itens" }

type VendaPagamento struct {
	ID      uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VendaID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Forma   string          `gorm:"type:varchar(20);not null"`
	Valor   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (VendaPagamento) TableName() string { return "venda_pagamentos" }
