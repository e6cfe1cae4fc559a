package repository

import (
	"context"
	"time"

	"vlstore/internal/dto"
	"vlstore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VendaRepository interface {
	Create(ctx context.Context, tx *gorm.DB, v *model.Venda) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venda, error)
	NextNumero(ctx context.Context, tx *gorm.DB) (int64, error)
	// Cancelar flips a concluida sale to cancelada; ErrEstadoAlterado when it
	// was already cancelled.
	Cancelar(ctx context.Context, tx *gorm.DB, id uuid.UUID, motivo string, em time.Time) error
	SetComprovantePath(ctx context.Context, id uuid.UUID, path string) error
	// ListSemComprovante returns concluded sales created in [desde, ate)
	// whose receipt was never rendered, oldest first.
	ListSemComprovante(ctx context.Context, desde, ate time.Time, limit int) ([]model.Venda, error)
	CountByCaixa(ctx context.Context, caixaID uuid.UUID) (int64, error)
	List(ctx context.Context, filter dto.VendaFilter) ([]model.Venda, int64, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type vendaRepo struct{ db *gorm.DB }

func NewVendaRepository(db *gorm.DB) VendaRepository { return &vendaRepo{db: db} }

func (r *vendaRepo) DB() *gorm.DB { return r.db }

func (r *vendaRepo) Create(ctx context.Context, tx *gorm.DB, v *model.Venda) error {
	return conn(ctx, r.db, tx).Omit("Usuario").Create(v).Error
}

func (r *vendaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venda, error) {
	var v model.Venda
	err := r.db.WithContext(ctx).Preload("Itens").Preload("Pagamentos").Preload("Usuario").
		First(&v, "id = ?", id).Error
	return &v, err
}

func (r *vendaRepo) NextNumero(ctx context.Context, tx *gorm.DB) (int64, error) {
	// A PostgreSQL sequence keeps numbering gap-tolerant but collision-free
	var num int64
	err := conn(ctx, r.db, tx).Raw("SELECT nextval('vendas_numero_seq')").Scan(&num).Error
	return num, err
}

func (r *vendaRepo) Cancelar(ctx context.Context, tx *gorm.DB, id uuid.UUID, motivo string, em time.Time) error {
	res := conn(ctx, r.db, tx).Model(&model.Venda{}).
		Where("id = ? AND status = ?", id, model.VendaConcluida).
		Updates(map[string]interface{}{
			"status":              model.VendaCancelada,
			"motivo_cancelamento": motivo,
			"cancelada_em":        em,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEstadoAlterado
	}
	return nil
}

func (r *vendaRepo) SetComprovantePath(ctx context.Context, id uuid.UUID, path string) error {
	return r.db.WithContext(ctx).Model(&model.Venda{}).Where("id = ?", id).Update("comprovante_path", path).Error
}

func (r *vendaRepo) ListSemComprovante(ctx context.Context, desde, ate time.Time, limit int) ([]model.Venda, error) {
	var vendas []model.Venda
	err := r.db.WithContext(ctx).
		Where("status = ? AND comprovante_path IS NULL AND created_at >= ? AND created_at < ?", model.VendaConcluida, desde, ate).
		Order("created_at ASC").
		Limit(limit).
		Find(&vendas).Error
	return vendas, err
}

func (r *vendaRepo) CountByCaixa(ctx context.Context, caixaID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Venda{}).
		Where("caixa_id = ? AND status = ?", caixaID, model.VendaConcluida).
		Count(&n).Error
	return n, err
}

func (r *vendaRepo) List(ctx context.Context, filter dto.VendaFilter) ([]model.Venda, int64, error) {
	var vendas []model.Venda
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Venda{})

	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.LojaID != "" {
		q = q.Where("loja_id = ?", filter.LojaID)
	}
	if filter.CaixaID != "" {
		q = q.Where("caixa_id = ?", filter.CaixaID)
	}
	if filter.Data != "" {
		q = q.Where("DATE(created_at) = ?", filter.Data)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Itens").Preload("Pagamentos").
		Order("created_at DESC").
		Offset(filter.Offset()).Limit(filter.Limit).
		Find(&vendas).Error

	return vendas, total, err
}
