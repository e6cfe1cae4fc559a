package repository

import (
	"context"

	"vlstore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LojaRepository interface {
	Create(ctx context.Context, l *model.Loja) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Loja, error)
	FindByCNPJ(ctx context.Context, cnpj string) (*model.Loja, error)
	List(ctx context.Context, incluirInativas bool) ([]model.Loja, error)
	Update(ctx context.Context, l *model.Loja) error
	SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error
}

type lojaRepo struct{ db *gorm.DB }

func NewLojaRepository(db *gorm.DB) LojaRepository { return &lojaRepo{db: db} }

func (r *lojaRepo) Create(ctx context.Context, l *model.Loja) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *lojaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Loja, error) {
	var l model.Loja
	err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error
	return &l, err
}

func (r *lojaRepo) FindByCNPJ(ctx context.Context, cnpj string) (*model.Loja, error) {
	var l model.Loja
	err := r.db.WithContext(ctx).Where("cnpj = ?", cnpj).First(&l).Error
	return &l, err
}

func (r *lojaRepo) List(ctx context.Context, incluirInativas bool) ([]model.Loja, error) {
	var lojas []model.Loja
	q := r.db.WithContext(ctx)
	if !incluirInativas {
		q = q.Where("ativo = true")
	}
	err := q.Order("nome ASC").Find(&lojas).Error
	return lojas, err
}

func (r *lojaRepo) Update(ctx context.Context, l *model.Loja) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *lojaRepo) SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error {
	return r.db.WithContext(ctx).Model(&model.Loja{}).Where("id = ?", id).Update("ativo", ativo).Error
}
