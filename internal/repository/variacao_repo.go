package repository

import (
	"context"

	"vlstore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VariacaoRepository interface {
	Create(ctx context.Context, tx *gorm.DB, v *model.Variacao) error
	// FindByID preloads the parent product.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Variacao, error)
	FindByBarcode(ctx context.Context, barcode string) (*model.Variacao, error)
	ExistsSKU(ctx context.Context, sku string, exceto *uuid.UUID) (bool, error)
	Update(ctx context.Context, v *model.Variacao) error
	SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error
	// ListAlertas returns active variations at or below their minimum stock.
	ListAlertas(ctx context.Context, lojaID *uuid.UUID) ([]model.Variacao, error)

	// AjustarEstoqueTx applies delta only when the result stays >= 0 and
	// returns the new stock. It fails with ErrEstoqueInsuficiente otherwise.
	AjustarEstoqueTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta int) (int, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type variacaoRepo struct{ db *gorm.DB }

func NewVariacaoRepository(db *gorm.DB) VariacaoRepository { return &variacaoRepo{db: db} }

func (r *variacaoRepo) DB() *gorm.DB { return r.db }

func (r *variacaoRepo) Create(ctx context.Context, tx *gorm.DB, v *model.Variacao) error {
	return conn(ctx, r.db, tx).Omit("Produto").Create(v).Error
}

func (r *variacaoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Variacao, error) {
	var v model.Variacao
	err := r.db.WithContext(ctx).Preload("Produto").First(&v, "id = ?", id).Error
	return &v, err
}

func (r *variacaoRepo) FindByBarcode(ctx context.Context, barcode string) (*model.Variacao, error) {
	var v model.Variacao
	err := r.db.WithContext(ctx).Preload("Produto").
		Where("codigo_barras = ? AND ativo = true", barcode).
		First(&v).Error
	return &v, err
}

func (r *variacaoRepo) ExistsSKU(ctx context.Context, sku string, exceto *uuid.UUID) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&model.Variacao{}).Where("sku = ?", sku)
	if exceto != nil {
		q = q.Where("id <> ?", *exceto)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *variacaoRepo) Update(ctx context.Context, v *model.Variacao) error {
	return r.db.WithContext(ctx).Omit("Produto").Save(v).Error
}

func (r *variacaoRepo) SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error {
	return r.db.WithContext(ctx).Model(&model.Variacao{}).Where("id = ?", id).Update("ativo", ativo).Error
}

func (r *variacaoRepo) ListAlertas(ctx context.Context, lojaID *uuid.UUID) ([]model.Variacao, error) {
	var vs []model.Variacao
	q := r.db.WithContext(ctx).
		Joins("Produto").
		Where("variacoes.ativo = true AND variacoes.estoque <= variacoes.estoque_minimo").
		Where(`"Produto".ativo = true`)
	if lojaID != nil {
		q = q.Where(`"Produto".loja_id = ?`, *lojaID)
	}
	err := q.Order("variacoes.estoque ASC").Find(&vs).Error
	return vs, err
}

func (r *variacaoRepo) AjustarEstoqueTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta int) (int, error) {
	var v model.Variacao
	res := conn(ctx, r.db, tx).Model(&v).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "estoque"}}}).
		Where("id = ? AND estoque + ? >= 0", id, delta).
		Update("estoque", gorm.Expr("estoque + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrEstoqueInsuficiente
	}
	return v.Estoque, nil
}
