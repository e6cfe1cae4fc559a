package model

import (
	"time"

	"github.com/google/uuid"
)

// Funcionario is an employee record. It may be linked to a Usuario when the
// employee also operates the system.
type Funcionario struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LojaID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	UsuarioID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Nome      string     `gorm:"not null"`
	CPF       string     `gorm:"type:varchar(11);uniqueIndex;not null;column:cpf"`
	Cargo     string     `gorm:"not null"`
	Telefone  *string
	Email     *string
	Ativo     bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Loja    *Loja    `gorm:"foreignKey:LojaID"`
	Usuario *Usuario `gorm:"foreignKey:UsuarioID"`
}
