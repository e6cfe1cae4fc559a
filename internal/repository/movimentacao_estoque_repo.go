package repository

import (
	"context"

	"vlstore/internal/dto"
	"vlstore/internal/model"

	"gorm.io/gorm"
)

type MovimentacaoEstoqueRepository interface {
	Create(ctx context.Context, tx *gorm.DB, m *model.MovimentacaoEstoque) error
	List(ctx context.Context, filter dto.MovimentacaoEstoqueFilter) ([]model.MovimentacaoEstoque, int64, error)
}

type movimentacaoEstoqueRepo struct{ db *gorm.DB }

func NewMovimentacaoEstoqueRepository(db *gorm.DB) MovimentacaoEstoqueRepository {
	return &movimentacaoEstoqueRepo{db: db}
}

func (r *movimentacaoEstoqueRepo) Create(ctx context.Context, tx *gorm.DB, m *model.MovimentacaoEstoque) error {
	return conn(ctx, r.db, tx).Omit("Variacao").Create(m).Error
}

func (r *movimentacaoEstoqueRepo) List(ctx context.Context, filter dto.MovimentacaoEstoqueFilter) ([]model.MovimentacaoEstoque, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.MovimentacaoEstoque{})
	if filter.LojaID != "" {
		q = q.Where("loja_id = ?", filter.LojaID)
	}
	if filter.VariacaoID != "" {
		q = q.Where("variacao_id = ?", filter.VariacaoID)
	}
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var movimentacoes []model.MovimentacaoEstoque
	err := q.Order("created_at DESC").Offset(filter.Offset()).Limit(filter.Limit).Find(&movimentacoes).Error
	return movimentacoes, total, err
}
