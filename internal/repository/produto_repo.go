package repository

import (
	"context"

	"vlstore/internal/dto"
	"vlstore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProdutoRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// so unit tests run against in-memory stubs.
type ProdutoRepository interface {
	// Create inserts the product together with its variations.
	Create(ctx context.Context, tx *gorm.DB, p *model.Produto) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Produto, error)
	// FindByBarcode looks up an active product; lojaID nil searches every store.
	FindByBarcode(ctx context.Context, lojaID *uuid.UUID, barcode string) (*model.Produto, error)
	ExistsBarcode(ctx context.Context, lojaID uuid.UUID, barcode string, exceto *uuid.UUID) (bool, error)
	List(ctx context.Context, filter dto.ProdutoFilter) ([]model.Produto, int64, error)
	Update(ctx context.Context, p *model.Produto) error
	SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error
}

type produtoRepo struct{ db *gorm.DB }

func NewProdutoRepository(db *gorm.DB) ProdutoRepository { return &produtoRepo{db: db} }

func (r *produtoRepo) Create(ctx context.Context, tx *gorm.DB, p *model.Produto) error {
	return conn(ctx, r.db, tx).Create(p).Error
}

func (r *produtoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Produto, error) {
	var p model.Produto
	err := r.db.WithContext(ctx).
		Preload("Variacoes", func(db *gorm.DB) *gorm.DB { return db.Order("nome ASC") }).
		First(&p, "id = ?", id).Error
	return &p, err
}

func (r *produtoRepo) FindByBarcode(ctx context.Context, lojaID *uuid.UUID, barcode string) (*model.Produto, error) {
	var p model.Produto
	q := r.db.WithContext(ctx).
		Preload("Variacoes", "ativo = true").
		Where("codigo_barras = ? AND ativo = true", barcode)
	if lojaID != nil {
		q = q.Where("loja_id = ?", *lojaID)
	}
	err := q.First(&p).Error
	return &p, err
}

func (r *produtoRepo) ExistsBarcode(ctx context.Context, lojaID uuid.UUID, barcode string, exceto *uuid.UUID) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&model.Produto{}).
		Where("loja_id = ? AND codigo_barras = ?", lojaID, barcode)
	if exceto != nil {
		q = q.Where("id <> ?", *exceto)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *produtoRepo) List(ctx context.Context, filter dto.ProdutoFilter) ([]model.Produto, int64, error) {
	var produtos []model.Produto
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Produto{})

	// Ativo filter: "false" = inativos, "all" = todos, anything else = ativos (default)
	switch filter.Ativo {
	case "false":
		q = q.Where("ativo = false")
	case "all":
		// no filter
	default:
		q = q.Where("ativo = true")
	}

	if filter.LojaID != "" {
		q = q.Where("loja_id = ?", filter.LojaID)
	}
	if filter.Nome != "" {
		q = q.Where("nome ILIKE ?", "%"+filter.Nome+"%")
	}
	if filter.Categoria != "" {
		q = q.Where("categoria = ?", filter.Categoria)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Variacoes", func(db *gorm.DB) *gorm.DB { return db.Order("nome ASC") }).
		Order("nome ASC").Limit(filter.Limit).Offset(filter.Offset()).
		Find(&produtos).Error
	return produtos, total, err
}

func (r *produtoRepo) Update(ctx context.Context, p *model.Produto) error {
	return r.db.WithContext(ctx).Omit("Variacoes").Save(p).Error
}

func (r *produtoRepo) SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error {
	return r.db.WithContext(ctx).Model(&model.Produto{}).Where("id = ?", id).Update("ativo", ativo).Error
}
