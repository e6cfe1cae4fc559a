package repository

import (
	"context"
	"time"

	"vlstore/internal/dto"
	"vlstore/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TotalMovimentacao is one row of the per-tipo, per-forma ledger summary.
type TotalMovimentacao struct {
	Tipo           string
	FormaPagamento string
	Total          decimal.Decimal
}

type CaixaRepository interface {
	Create(ctx context.Context, c *model.Caixa) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Caixa, error)
	// FindByIDForUpdate locks the caixa row until the transaction ends.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Caixa, error)
	// FindAberto returns the open caixa of a user; lojaID nil matches any store.
	FindAberto(ctx context.Context, usuarioID uuid.UUID, lojaID *uuid.UUID) (*model.Caixa, error)
	// Fechar persists closing data only while the caixa is still open.
	Fechar(ctx context.Context, tx *gorm.DB, c *model.Caixa) error
	Historico(ctx context.Context, filter dto.CaixaHistoricoFilter) ([]model.Caixa, int64, error)

	CreateMovimentacao(ctx context.Context, tx *gorm.DB, m *model.MovimentacaoCaixa) error
	ListMovimentacoes(ctx context.Context, caixaID uuid.UUID) ([]model.MovimentacaoCaixa, error)
	Totais(ctx context.Context, tx *gorm.DB, caixaID uuid.UUID) ([]TotalMovimentacao, error)

	DB() *gorm.DB
}

type caixaRepo struct{ db *gorm.DB }

func NewCaixaRepository(db *gorm.DB) CaixaRepository { return &caixaRepo{db: db} }

func (r *caixaRepo) DB() *gorm.DB { return r.db }

func (r *caixaRepo) Create(ctx context.Context, c *model.Caixa) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *caixaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Caixa, error) {
	var c model.Caixa
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return &c, err
}

func (r *caixaRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Caixa, error) {
	var c model.Caixa
	err := conn(ctx, r.db, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, "id = ?", id).Error
	return &c, err
}

func (r *caixaRepo) FindAberto(ctx context.Context, usuarioID uuid.UUID, lojaID *uuid.UUID) (*model.Caixa, error) {
	var c model.Caixa
	q := r.db.WithContext(ctx).Where("usuario_id = ? AND status = ?", usuarioID, model.CaixaAberto)
	if lojaID != nil {
		q = q.Where("loja_id = ?", *lojaID)
	}
	err := q.Order("aberto_em DESC").First(&c).Error
	return &c, err
}

func (r *caixaRepo) Fechar(ctx context.Context, tx *gorm.DB, c *model.Caixa) error {
	res := conn(ctx, r.db, tx).Model(&model.Caixa{}).
		Where("id = ? AND status = ?", c.ID, model.CaixaAberto).
		Updates(map[string]interface{}{
			"status":             model.CaixaFechado,
			"valor_esperado":     c.ValorEsperado,
			"valor_informado":    c.ValorInformado,
			"informado_dinheiro": c.InformadoDinheiro,
			"informado_debito":   c.InformadoDebito,
			"informado_credito":  c.InformadoCredito,
			"informado_pix":      c.InformadoPix,
			"diferenca":          c.Diferenca,
			"diferenca_pct":      c.DiferencaPct,
			"classificacao":      c.Classificacao,
			"observacoes":        c.Observacoes,
			"fechado_em":         c.FechadoEm,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEstadoAlterado
	}
	return nil
}

func (r *caixaRepo) Historico(ctx context.Context, filter dto.CaixaHistoricoFilter) ([]model.Caixa, int64, error) {
	var caixas []model.Caixa
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Caixa{})
	if filter.LojaID != "" {
		q = q.Where("loja_id = ?", filter.LojaID)
	}
	if filter.UsuarioID != "" {
		q = q.Where("usuario_id = ?", filter.UsuarioID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("aberto_em DESC").Offset(filter.Offset()).Limit(filter.Limit).Find(&caixas).Error
	return caixas, total, err
}

func (r *caixaRepo) CreateMovimentacao(ctx context.Context, tx *gorm.DB, m *model.MovimentacaoCaixa) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return conn(ctx, r.db, tx).Create(m).Error
}

func (r *caixaRepo) ListMovimentacoes(ctx context.Context, caixaID uuid.UUID) ([]model.MovimentacaoCaixa, error) {
	var movs []model.MovimentacaoCaixa
	err := r.db.WithContext(ctx).Where("caixa_id = ?", caixaID).Order("created_at ASC").Find(&movs).Error
	return movs, err
}

func (r *caixaRepo) Totais(ctx context.Context, tx *gorm.DB, caixaID uuid.UUID) ([]TotalMovimentacao, error) {
	var rows []TotalMovimentacao
	err := conn(ctx, r.db, tx).Model(&model.MovimentacaoCaixa{}).
		Select("tipo, forma_pagamento, COALESCE(SUM(valor), 0) AS total").
		Where("caixa_id = ?", caixaID).
		Group("tipo, forma_pagamento").
		Scan(&rows).Error
	return rows, err
}
