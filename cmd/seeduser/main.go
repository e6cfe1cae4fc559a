// seeduser creates or resets the initial admin user.
// Usage: go run ./cmd/seeduser -username admin -password 's3cret!!'
package main

import (
	"flag"
	"os"

	"vlstore/internal/config"
	"vlstore/internal/infra"
	"vlstore/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	username := flag.String("username", "admin", "login of the admin user")
	password := flag.String("password", "", "password (min 8 characters)")
	nome := flag.String("nome", "Administrador", "display name")
	flag.Parse()

	if len(*password) < 8 {
		log.Fatal().Msg("-password must have at least 8 characters")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt error")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}

	u := model.Usuario{
		Username:     *username,
		Nome:         *nome,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Ativo:        true,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash", "nome", "role", "ativo", "updated_at"}),
	}).Create(&u).Error
	if err != nil {
		log.Fatal().Err(err).Msg("insert error")
	}
	log.Info().Str("username", *username).Msg("admin user created/updated")
}
