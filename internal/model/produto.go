package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Produto groups one or more sellable variations (size, color, flavor...).
// Stock lives on the variation, never on the product.
type Produto struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LojaID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Nome         string    `gorm:"index;not null"`
	Descricao    *string
	Categoria    string          `gorm:"not null"`
	CodigoBarras *string         `gorm:"type:varchar(32);index"`
	PrecoBase    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Ativo        bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Variacoes []Variacao `gorm:"foreignKey:ProdutoID"`
}

// Variacao is the sellable unit. Preco nil means the product's PrecoBase applies.
type Variacao struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProdutoID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	Nome          string           `gorm:"not null"`
	SKU           string           `gorm:"type:varchar(64);uniqueIndex;not null;column:sku"`
	CodigoBarras  *string          `gorm:"type:varchar(32);index"`
	Preco         *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Estoque       int              `gorm:"not null;default:0"`
	EstoqueMinimo int              `gorm:"not null;default:0"`
	Ativo         bool             `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Produto *Produto `gorm:"foreignKey:ProdutoID"`
}

// TableName overrides GORM's default pluralization (variacaos → variacoes).
func (Variacao) TableName() string { return "variacoes" }

// PrecoEfetivo returns the variation's own price or, when unset, the base price.
func (v Variacao) PrecoEfetivo(base decimal.Decimal) decimal.Decimal {
	if v.Preco != nil {
		return *v.Preco
	}
	return base
}

// Descricao joins product and variation names for receipts and sale items.
func (v Variacao) Descricao() string {
	if v.Produto == nil {
		return v.Nome
	}
	return v.Produto.Nome + " - " + v.Nome
}
