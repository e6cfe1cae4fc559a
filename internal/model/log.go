package model

import (
	"time"

	"github.com/google/uuid"
)

// Log is an audit trail entry for a mutating operation.
type Log struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID  *uuid.UUID `gorm:"type:uuid;index"`
	LojaID     *uuid.UUID `gorm:"type:uuid;index"`
	Acao       string     `gorm:"type:varchar(40);not null"`
	Entidade   string     `gorm:"type:varchar(40);not null;index"`
	EntidadeID *uuid.UUID `gorm:"type:uuid"`
	// Detalhes holds a JSON document describing the change
	Detalhes  string `gorm:"type:jsonb;not null;default:'{}'"`
	IP        string `gorm:"type:varchar(64)"`
	CreatedAt time.Time `gorm:"index"`
}
