package repository

import (
	"context"

	"vlstore/internal/dto"
	"vlstore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UsuarioRepository interface {
	Create(ctx context.Context, u *model.Usuario) error
	// FindByLogin matches username or e-mail; inactive users are returned too
	// so the service can tell them apart from unknown credentials.
	FindByLogin(ctx context.Context, login string) (*model.Usuario, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error)
	ExistsUsername(ctx context.Context, username string, exceto *uuid.UUID) (bool, error)
	ExistsEmail(ctx context.Context, email string, exceto *uuid.UUID) (bool, error)
	List(ctx context.Context, filter dto.UsuarioFilter) ([]model.Usuario, int64, error)
	Update(ctx context.Context, u *model.Usuario) error
	SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error
}

type usuarioRepo struct{ db *gorm.DB }

func NewUsuarioRepository(db *gorm.DB) UsuarioRepository { return &usuarioRepo{db: db} }

func (r *usuarioRepo) Create(ctx context.Context, u *model.Usuario) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *usuarioRepo) FindByLogin(ctx context.Context, login string) (*model.Usuario, error) {
	var u model.Usuario
	// Accept login by username OR email (case-insensitive email match)
	err := r.db.WithContext(ctx).
		Where("username = ? OR LOWER(email) = LOWER(?)", login, login).
		First(&u).Error
	return &u, err
}

func (r *usuarioRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error) {
	var u model.Usuario
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	return &u, err
}

func (r *usuarioRepo) ExistsUsername(ctx context.Context, username string, exceto *uuid.UUID) (bool, error) {
	return r.exists(ctx, "username = ?", username, exceto)
}

func (r *usuarioRepo) ExistsEmail(ctx context.Context, email string, exceto *uuid.UUID) (bool, error) {
	return r.exists(ctx, "LOWER(email) = LOWER(?)", email, exceto)
}

func (r *usuarioRepo) exists(ctx context.Context, cond string, val string, exceto *uuid.UUID) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&model.Usuario{}).Where(cond, val)
	if exceto != nil {
		q = q.Where("id <> ?", *exceto)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *usuarioRepo) List(ctx context.Context, filter dto.UsuarioFilter) ([]model.Usuario, int64, error) {
	var users []model.Usuario
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Usuario{})
	if !filter.IncluirInativos {
		q = q.Where("ativo = true")
	}
	if filter.LojaID != "" {
		q = q.Where("loja_id = ?", filter.LojaID)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("username ASC").Offset(filter.Offset()).Limit(filter.Limit).Find(&users).Error
	return users, total, err
}

func (r *usuarioRepo) Update(ctx context.Context, u *model.Usuario) error {
	return r.db.WithContext(ctx).Omit("Loja").Save(u).Error
}

func (r *usuarioRepo) SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error {
	return r.db.WithContext(ctx).Model(&model.Usuario{}).Where("id = ?", id).Update("ativo", ativo).Error
}
