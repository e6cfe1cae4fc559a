package infra

import (
	"fmt"

	"vlstore/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and brings the
// schema up to date. TranslateError maps unique_violation to
// gorm.ErrDuplicatedKey, which the repositories rely on.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates the extensions GORM needs, runs AutoMigrate for every
// model and then applies the DDL AutoMigrate cannot express. Safe to re-run.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Loja{},
		&model.Usuario{},
		&model.Funcionario{},
		&model.Produto{},
		&model.Variacao{},
		&model.MovimentacaoEstoque{},
		&model.Caixa{},
		&model.MovimentacaoCaixa{},
		&model.Venda{},
		&model.VendaItem{},
		&model.VendaPagamento{},
		&model.Log{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL: sequences, partial indexes and
// CHECK constraints.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"vendas numero sequence",
			`CREATE SEQUENCE IF NOT EXISTS vendas_numero_seq START 1`},
		// one open caixa per operator per store, enforced by the database too
		{"caixa aberto unique", `
CREATE UNIQUE INDEX IF NOT EXISTS uq_caixas_aberto
    ON caixas (usuario_id, loja_id)
    WHERE status = 'aberto'`},
		{"produto barcode per store", `
CREATE UNIQUE INDEX IF NOT EXISTS uq_produtos_loja_barcode
    ON produtos (loja_id, codigo_barras)
    WHERE codigo_barras IS NOT NULL`},
		{"variacao estoque non-negative", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_variacoes_estoque') THEN
    ALTER TABLE variacoes ADD CONSTRAINT chk_variacoes_estoque CHECK (estoque >= 0);
  END IF;
END $$`},
		{"venda total non-negative", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_vendas_total') THEN
    ALTER TABLE vendas ADD CONSTRAINT chk_vendas_total CHECK (total >= 0 AND troco >= 0);
  END IF;
END $$`},
		{"caixas diferenca_pct width", `
DO $$ BEGIN
  IF EXISTS (SELECT 1 FROM information_schema.columns
             WHERE table_name = 'caixas' AND column_name = 'diferenca_pct' AND numeric_precision < 12) THEN
    ALTER TABLE caixas ALTER COLUMN diferenca_pct TYPE decimal(12,2);
  END IF;
END $$`},
		{"logs created_at desc", `
CREATE INDEX IF NOT EXISTS idx_logs_loja_created
    ON logs (loja_id, created_at DESC)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
