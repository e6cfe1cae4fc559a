package repository

import (
	"context"

	"vlstore/internal/dto"
	"vlstore/internal/model"

	"gorm.io/gorm"
)

type LogRepository interface {
	Create(ctx context.Context, l *model.Log) error
	List(ctx context.Context, filter dto.LogFilter) ([]model.Log, int64, error)
}

type logRepo struct{ db *gorm.DB }

func NewLogRepository(db *gorm.DB) LogRepository { return &logRepo{db: db} }

func (r *logRepo) Create(ctx context.Context, l *model.Log) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *logRepo) List(ctx context.Context, filter dto.LogFilter) ([]model.Log, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Log{})
	if filter.LojaID != "" {
		q = q.Where("loja_id = ?", filter.LojaID)
	}
	if filter.UsuarioID != "" {
		q = q.Where("usuario_id = ?", filter.UsuarioID)
	}
	if filter.Entidade != "" {
		q = q.Where("entidade = ?", filter.Entidade)
	}
	if filter.Acao != "" {
		q = q.Where("acao = ?", filter.Acao)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []model.Log
	err := q.Order("created_at DESC").Offset(filter.Offset()).Limit(filter.Limit).Find(&logs).Error
	return logs, total, err
}
