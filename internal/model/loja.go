package model

import (
	"time"

	"github.com/google/uuid"
)

// Loja is a physical store. Users other than admins, employees, products
// and cash registers all belong to exactly one store.
type Loja struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nome      string    `gorm:"not null"`
	CNPJ      string    `gorm:"type:varchar(14);uniqueIndex;not null;column:cnpj"`
	Endereco  *string
	Telefone  *string
	Ativo     bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
