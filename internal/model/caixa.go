package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CaixaAberto  = "aberto"
	CaixaFechado = "fechado"
)

// Payment methods. Manual movements (suprimento / sangria) are always cash.
const (
	FormaDinheiro = "dinheiro"
	FormaDebito   = "debito"
	FormaCredito  = "credito"
	FormaPix      = "pix"
)

// FormasPagamento lists every accepted payment method in report order.
var FormasPagamento = []string{FormaDinheiro, FormaDebito, FormaCredito, FormaPix}

// Cash movement types.
const (
	MovVenda        = "venda"
	MovSuprimento   = "suprimento"
	MovSangria      = "sangria"
	MovCancelamento = "cancelamento"
)

// Caixa is one cash-register session of one operator in one store.
// Status: "aberto" | "fechado". A closed caixa is never modified again.
type Caixa struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LojaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	UsuarioID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ValorAbertura decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status        string          `gorm:"type:varchar(20);not null;default:'aberto';index"`
	// Closing data, filled by the blind count
	ValorEsperado     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ValorInformado    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	InformadoDinheiro *decimal.Decimal `gorm:"type:decimal(12,2)"`
	InformadoDebito   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	InformadoCredito  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	InformadoPix      *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Diferenca         *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiferencaPct      *decimal.Decimal `gorm:"type:decimal(12,2)"`
	// Classificacao: "normal" | "alerta" | "critico"
	Classificacao *string `gorm:"type:varchar(20)"`
	Observacoes   *string
	AbertoEm      time.Time `gorm:"not null;autoCreateTime"`
	FechadoEm     *time.Time

	Movimentacoes []MovimentacaoCaixa `gorm:"foreignKey:CaixaID"`
}

// MovimentacaoCaixa is an immutable entry in the cash-register ledger.
// Cancellations create inverse entries; nothing is updated or deleted.
type MovimentacaoCaixa struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CaixaID        uuid.UUID       `gorm:"type:uuid;index;not null"`
	UsuarioID      uuid.UUID       `gorm:"type:uuid;not null"`
	Tipo           string          `gorm:"type:varchar(20);not null"`
	FormaPagamento string          `gorm:"type:varchar(20);not null"`
	Valor          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descricao      string          `gorm:"not null"`
	// ReferenciaID links to the originating Venda, if any
	ReferenciaID *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt    time.Time
}

func (MovimentacaoCaixa) TableName() string { return "movimentacoes_caixa" }
