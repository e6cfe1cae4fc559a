package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"vlstore/internal/config"
	"vlstore/internal/dto"
	"vlstore/internal/model"
	"vlstore/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"

	bcryptCost = 12
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest, ip string) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	Me(ctx context.Context, id uuid.UUID) (*dto.UsuarioResponse, error)

	CriarUsuario(ctx context.Context, ator Ator, req dto.CriarUsuarioRequest) (*dto.UsuarioResponse, error)
	ListarUsuarios(ctx context.Context, filter dto.UsuarioFilter) (*dto.Pagina[dto.UsuarioResponse], error)
	ObterUsuario(ctx context.Context, id uuid.UUID) (*dto.UsuarioResponse, error)
	AtualizarUsuario(ctx context.Context, ator Ator, id uuid.UUID, req dto.AtualizarUsuarioRequest) (*dto.UsuarioResponse, error)
	DesativarUsuario(ctx context.Context, ator Ator, id uuid.UUID) error
	ReativarUsuario(ctx context.Context, ator Ator, id uuid.UUID) error
}

type authService struct {
	repo     repository.UsuarioRepository
	lojaRepo repository.LojaRepository
	logs     LogService
	cfg      *config.Config
}

func NewAuthService(repo repository.UsuarioRepository, lojaRepo repository.LojaRepository, logs LogService, cfg *config.Config) AuthService {
	return &authService{repo: repo, lojaRepo: lojaRepo, logs: logs, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest, ip string) (*dto.LoginResponse, error) {
	user, err := s.repo.FindByLogin(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, &Erro{Tipo: ErrCredenciais, Msg: "credenciais inválidas"}
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &Erro{Tipo: ErrCredenciais, Msg: "credenciais inválidas"}
	}
	// Inactive accounts are only reported once the password matched
	if !user.Ativo {
		return nil, &Erro{Tipo: ErrCredenciais, Msg: "usuário inativo"}
	}

	resp, err := s.emitirTokens(user)
	if err != nil {
		return nil, err
	}
	s.logs.Registrar(ctx, Ator{UsuarioID: user.ID, Username: user.Username, Role: user.Role, LojaID: user.LojaID, IP: ip},
		Entrada{Acao: AcaoLogin, Entidade: EntUsuario, EntidadeID: ptrUUID(user.ID)})
	return resp, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, &Erro{Tipo: ErrCredenciais, Msg: "refresh token inválido ou expirado"}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, &Erro{Tipo: ErrCredenciais, Msg: "claims inválidas"}
	}
	if tt, _ := claims["token_type"].(string); tt != TokenRefresh {
		return nil, &Erro{Tipo: ErrCredenciais, Msg: "token não é de refresh"}
	}
	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return nil, &Erro{Tipo: ErrCredenciais, Msg: "token mal formado"}
	}
	uid, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, &Erro{Tipo: ErrCredenciais, Msg: "token mal formado"}
	}

	user, err := s.repo.FindByID(ctx, uid)
	if err != nil || !user.Ativo {
		return nil, &Erro{Tipo: ErrCredenciais, Msg: "usuário não encontrado ou inativo"}
	}
	return s.emitirTokens(user)
}

func (s *authService) Me(ctx context.Context, id uuid.UUID) (*dto.UsuarioResponse, error) {
	return s.ObterUsuario(ctx, id)
}

func (s *authService) CriarUsuario(ctx context.Context, ator Ator, req dto.CriarUsuarioRequest) (*dto.UsuarioResponse, error) {
	username := strings.TrimSpace(req.Username)
	if exists, err := s.repo.ExistsUsername(ctx, username, nil); err != nil {
		return nil, err
	} else if exists {
		return nil, conflito("username já cadastrado")
	}
	if req.Email != nil {
		if exists, err := s.repo.ExistsEmail(ctx, *req.Email, nil); err != nil {
			return nil, err
		} else if exists {
			return nil, conflito("e-mail já cadastrado")
		}
	}

	lojaID, err := s.resolverLoja(ctx, req.Role, req.LojaID)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &model.Usuario{
		Username:     username,
		Nome:         req.Nome,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		LojaID:       lojaID,
		Ativo:        true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, conflito("username ou e-mail já cadastrado")
		}
		return nil, err
	}

	s.logs.Registrar(ctx, ator, Entrada{
		Acao: AcaoCriar, Entidade: EntUsuario, EntidadeID: ptrUUID(user.ID), LojaID: user.LojaID,
		Detalhes: map[string]any{"username": user.Username, "role": user.Role},
	})
	return usuarioToResponse(user), nil
}

func (s *authService) ListarUsuarios(ctx context.Context, filter dto.UsuarioFilter) (*dto.Pagina[dto.UsuarioResponse], error) {
	filter.Normalizar()
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.UsuarioResponse, len(users))
	for i := range users {
		data[i] = *usuarioToResponse(&users[i])
	}
	p := dto.NovaPagina(data, total, filter.Page, filter.Limit)
	return &p, nil
}

func (s *authService) ObterUsuario(ctx context.Context, id uuid.UUID) (*dto.UsuarioResponse, error) {
	user, err := s.findUsuario(ctx, id)
	if err != nil {
		return nil, err
	}
	return usuarioToResponse(user), nil
}

func (s *authService) AtualizarUsuario(ctx context.Context, ator Ator, id uuid.UUID, req dto.AtualizarUsuarioRequest) (*dto.UsuarioResponse, error) {
	user, err := s.findUsuario(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Nome != nil {
		user.Nome = *req.Nome
	}
	if req.Email != nil {
		if exists, err := s.repo.ExistsEmail(ctx, *req.Email, &user.ID); err != nil {
			return nil, err
		} else if exists {
			return nil, conflito("e-mail já cadastrado")
		}
		user.Email = req.Email
	}
	if req.Role != nil {
		if user.ID == ator.UsuarioID && *req.Role != user.Role {
			return nil, regra("não é possível alterar o próprio perfil")
		}
		user.Role = *req.Role
	}
	lojaInformada := req.LojaID
	if lojaInformada == nil && user.LojaID != nil {
		atual := user.LojaID.String()
		lojaInformada = &atual
	}
	if user.LojaID, err = s.resolverLoja(ctx, user.Role, lojaInformada); err != nil {
		return nil, err
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logs.Registrar(ctx, ator, Entrada{
		Acao: AcaoAtualizar, Entidade: EntUsuario, EntidadeID: ptrUUID(user.ID), LojaID: user.LojaID,
		Detalhes: map[string]any{"role": user.Role, "senha_alterada": req.Password != nil},
	})
	return usuarioToResponse(user), nil
}

func (s *authService) DesativarUsuario(ctx context.Context, ator Ator, id uuid.UUID) error {
	if id == ator.UsuarioID {
		return regra("não é possível desativar o próprio usuário")
	}
	user, err := s.findUsuario(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetAtivo(ctx, id, false); err != nil {
		return err
	}
	s.logs.Registrar(ctx, ator, Entrada{Acao: AcaoDesativar, Entidade: EntUsuario, EntidadeID: ptrUUID(id), LojaID: user.LojaID})
	return nil
}

func (s *authService) ReativarUsuario(ctx context.Context, ator Ator, id uuid.UUID) error {
	user, err := s.findUsuario(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetAtivo(ctx, id, true); err != nil {
		return err
	}
	s.logs.Registrar(ctx, ator, Entrada{Acao: AcaoReativar, Entidade: EntUsuario, EntidadeID: ptrUUID(id), LojaID: user.LojaID})
	return nil
}

func (s *authService) findUsuario(ctx context.Context, id uuid.UUID) (*model.Usuario, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, naoEncontrado("usuário não encontrado")
		}
		return nil, err
	}
	return user, nil
}

// resolverLoja enforces that non-admin users belong to an existing, active store.
func (s *authService) resolverLoja(ctx context.Context, role string, lojaID *string) (*uuid.UUID, error) {
	if lojaID == nil || *lojaID == "" {
		if role != model.RoleAdmin {
			return nil, regra("loja_id é obrigatório para gerente e operador")
		}
		return nil, nil
	}
	id, err := uuid.Parse(*lojaID)
	if err != nil {
		return nil, regra("loja_id inválido")
	}
	loja, err := s.lojaRepo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, naoEncontrado("loja não encontrada")
		}
		return nil, err
	}
	if !loja.Ativo {
		return nil, regra("loja inativa")
	}
	return &id, nil
}

func (s *authService) emitirTokens(user *model.Usuario) (*dto.LoginResponse, error) {
	accessToken, err := s.generateToken(user, TokenAccess, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generateToken(user, TokenRefresh, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		User:         *usuarioToResponse(user),
	}, nil
}

func (s *authService) generateToken(user *model.Usuario, tokenType string, duration time.Duration) (string, error) {
	if s.cfg.JWTSecret == "" {
		return "", errors.New("JWT_SECRET não configurado")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":        user.ID.String(),
		"user_id":    user.ID.String(),
		"username":   user.Username,
		"role":       user.Role,
		"loja_id":    uuidPtrStr(user.LojaID),
		"token_type": tokenType,
		"exp":        now.Add(duration).Unix(),
		"iat":        now.Unix(),
		"jti":        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func usuarioToResponse(u *model.Usuario) *dto.UsuarioResponse {
	return &dto.UsuarioResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Nome:      u.Nome,
		Email:     u.Email,
		Role:      u.Role,
		LojaID:    uuidPtrStr(u.LojaID),
		Ativo:     u.Ativo,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}
