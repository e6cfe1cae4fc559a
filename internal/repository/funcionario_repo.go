package repository

import (
	"context"

	"vlstore/internal/dto"
	"vlstore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FuncionarioRepository interface {
	Create(ctx context.Context, f *model.Funcionario) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Funcionario, error)
	FindByCPF(ctx context.Context, cpf string) (*model.Funcionario, error)
	FindByUsuarioID(ctx context.Context, usuarioID uuid.UUID) (*model.Funcionario, error)
	List(ctx context.Context, filter dto.FuncionarioFilter) ([]model.Funcionario, int64, error)
	Update(ctx context.Context, f *model.Funcionario) error
	SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error
}

type funcionarioRepo struct{ db *gorm.DB }

func NewFuncionarioRepository(db *gorm.DB) FuncionarioRepository {
	return &funcionarioRepo{db: db}
}

func (r *funcionarioRepo) Create(ctx context.Context, f *model.Funcionario) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *funcionarioRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Funcionario, error) {
	var f model.Funcionario
	err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error
	return &f, err
}

func (r *funcionarioRepo) FindByCPF(ctx context.Context, cpf string) (*model.Funcionario, error) {
	var f model.Funcionario
	err := r.db.WithContext(ctx).Where("cpf = ?", cpf).First(&f).Error
	return &f, err
}

func (r *funcionarioRepo) FindByUsuarioID(ctx context.Context, usuarioID uuid.UUID) (*model.Funcionario, error) {
	var f model.Funcionario
	err := r.db.WithContext(ctx).Where("usuario_id = ?", usuarioID).First(&f).Error
	return &f, err
}

func (r *funcionarioRepo) List(ctx context.Context, filter dto.FuncionarioFilter) ([]model.Funcionario, int64, error) {
	var funcionarios []model.Funcionario
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Funcionario{})
	if !filter.IncluirInativos {
		q = q.Where("ativo = true")
	}
	if filter.LojaID != "" {
		q = q.Where("loja_id = ?", filter.LojaID)
	}
	if filter.Nome != "" {
		q = q.Where("nome ILIKE ?", "%"+filter.Nome+"%")
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("nome ASC").Offset(filter.Offset()).Limit(filter.Limit).Find(&funcionarios).Error
	return funcionarios, total, err
}

func (r *funcionarioRepo) Update(ctx context.Context, f *model.Funcionario) error {
	return r.db.WithContext(ctx).Omit("Loja", "Usuario").Save(f).Error
}

func (r *funcionarioRepo) SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error {
	return r.db.WithContext(ctx).Model(&model.Funcionario{}).Where("id = ?", id).Update("ativo", ativo).Error
}
