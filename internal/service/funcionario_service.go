package service

import (
	"context"
	"time"

	"vlstore/internal/dto"
	"vlstore/internal/model"
	"vlstore/internal/repository"

	"github.com/google/uuid"
)

type FuncionarioService interface {
	Criar(ctx context.Context, ator Ator, req dto.CriarFuncionarioRequest) (*dto.FuncionarioResponse, error)
	Listar(ctx context.Context, ator Ator, filter dto.FuncionarioFilter) (*dto.Pagina[dto.FuncionarioResponse], error)
	Obter(ctx context.Context, ator Ator, id uuid.UUID) (*dto.FuncionarioResponse, error)
	Atualizar(ctx context.Context, ator Ator, id uuid.UUID, req dto.AtualizarFuncionarioRequest) (*dto.FuncionarioResponse, error)
	Desativar(ctx context.Context, ator Ator, id uuid.UUID) error
}

type funcionarioService struct {
	repo        repository.FuncionarioRepository
	lojaRepo    repository.LojaRepository
	usuarioRepo repository.UsuarioRepository
	logs        LogService
}

func NewFuncionarioService(
	repo repository.FuncionarioRepository,
	lojaRepo repository.LojaRepository,
	usuarioRepo repository.UsuarioRepository,
	logs LogService,
) FuncionarioService {
	return &funcionarioService{repo: repo, lojaRepo: lojaRepo, usuarioRepo: usuarioRepo, logs: logs}
}

func (s *funcionarioService) Criar(ctx context.Context, ator Ator, req dto.CriarFuncionarioRequest) (*dto.FuncionarioResponse, error) {
	lojaID, err := ator.lojaDestino(req.LojaID)
	if err != nil {
		return nil, err
	}
	loja, err := s.lojaRepo.FindByID(ctx, lojaID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, naoEncontrado("loja não encontrada")
		}
		return nil, err
	}
	if !loja.Ativo {
		return nil, regra("loja inativa")
	}

	cpf := soDigitos(req.CPF)
	if !ValidarCPF(cpf) {
		return nil, regra("CPF inválido")
	}
	if _, err := s.repo.FindByCPF(ctx, cpf); err == nil {
		return nil, conflito("CPF já cadastrado")
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	f := &model.Funcionario{
		LojaID:   lojaID,
		Nome:     req.Nome,
		CPF:      cpf,
		Cargo:    req.Cargo,
		Telefone: req.Telefone,
		Email:    req.Email,
		Ativo:    true,
	}
	if req.UsuarioID != nil {
		if f.UsuarioID, err = s.vincularUsuario(ctx, *req.UsuarioID, lojaID, nil); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Create(ctx, f); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, conflito("CPF ou usuário já vinculado a outro funcionário")
		}
		return nil, err
	}

	s.logs.Registrar(ctx, ator, Entrada{
		Acao: AcaoCriar, Entidade: EntFuncionario, EntidadeID: ptrUUID(f.ID), LojaID: ptrUUID(lojaID),
		Detalhes: map[string]any{"nome": f.Nome, "cargo": f.Cargo},
	})
	return funcionarioToResponse(f), nil
}

func (s *funcionarioService) Listar(ctx context.Context, ator Ator, filter dto.FuncionarioFilter) (*dto.Pagina[dto.FuncionarioResponse], error) {
	loja, err := ator.escopoLoja(filter.LojaID)
	if err != nil {
		return nil, err
	}
	filter.LojaID = loja
	filter.Normalizar()

	fs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.FuncionarioResponse, len(fs))
	for i := range fs {
		data[i] = *funcionarioToResponse(&fs[i])
	}
	p := dto.NovaPagina(data, total, filter.Page, filter.Limit)
	return &p, nil
}

func (s *funcionarioService) Obter(ctx context.Context, ator Ator, id uuid.UUID) (*dto.FuncionarioResponse, error) {
	f, err := s.find(ctx, ator, id)
	if err != nil {
		return nil, err
	}
	return funcionarioToResponse(f), nil
}

func (s *funcionarioService) Atualizar(ctx context.Context, ator Ator, id uuid.UUID, req dto.AtualizarFuncionarioRequest) (*dto.FuncionarioResponse, error) {
	f, err := s.find(ctx, ator, id)
	if err != nil {
		return nil, err
	}
	if req.Nome != nil {
		f.Nome = *req.Nome
	}
	if req.Cargo != nil {
		f.Cargo = *req.Cargo
	}
	if req.Telefone != nil {
		f.Telefone = req.Telefone
	}
	if req.Email != nil {
		f.Email = req.Email
	}
	if req.Ativo != nil {
		f.Ativo = *req.Ativo
	}
	if req.UsuarioID != nil {
		if *req.UsuarioID == "" {
			f.UsuarioID = nil
		} else if f.UsuarioID, err = s.vincularUsuario(ctx, *req.UsuarioID, f.LojaID, &f.ID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, f); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, conflito("usuário já vinculado a outro funcionário")
		}
		return nil, err
	}
	s.logs.Registrar(ctx, ator, Entrada{Acao: AcaoAtualizar, Entidade: EntFuncionario, EntidadeID: ptrUUID(id), LojaID: ptrUUID(f.LojaID), Detalhes: req})
	return funcionarioToResponse(f), nil
}

func (s *funcionarioService) Desativar(ctx context.Context, ator Ator, id uuid.UUID) error {
	f, err := s.find(ctx, ator, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetAtivo(ctx, id, false); err != nil {
		return err
	}
	s.logs.Registrar(ctx, ator, Entrada{Acao: AcaoDesativar, Entidade: EntFuncionario, EntidadeID: ptrUUID(id), LojaID: ptrUUID(f.LojaID)})
	return nil
}

func (s *funcionarioService) find(ctx context.Context, ator Ator, id uuid.UUID) (*model.Funcionario, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, naoEncontrado("funcionário não encontrado")
		}
		return nil, err
	}
	if !ator.PodeAcessarLoja(f.LojaID) {
		return nil, proibido("funcionário de outra loja")
	}
	return f, nil
}

// vincularUsuario checks that the user exists, belongs to the same store and
// is not already linked to a different employee.
func (s *funcionarioService) vincularUsuario(ctx context.Context, raw string, lojaID uuid.UUID, atual *uuid.UUID) (*uuid.UUID, error) {
	uid, err := uuid.Parse(raw)
	if err != nil {
		return nil, regra("usuario_id inválido")
	}
	u, err := s.usuarioRepo.FindByID(ctx, uid)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, naoEncontrado("usuário não encontrado")
		}
		return nil, err
	}
	if u.LojaID != nil && *u.LojaID != lojaID {
		return nil, regra("usuário pertence a outra loja")
	}
	existente, err := s.repo.FindByUsuarioID(ctx, uid)
	if err == nil && (atual == nil || existente.ID != *atual) {
		return nil, conflito("usuário já vinculado a outro funcionário")
	} else if err != nil && !repository.IsNotFound(err) {
		return nil, err
	}
	return &uid, nil
}

func funcionarioToResponse(f *model.Funcionario) *dto.FuncionarioResponse {
	return &dto.FuncionarioResponse{
		ID:        f.ID.String(),
		LojaID:    f.LojaID.String(),
		UsuarioID: uuidPtrStr(f.UsuarioID),
		Nome:      f.Nome,
		CPF:       f.CPF,
		Cargo:     f.Cargo,
		Telefone:  f.Telefone,
		Email:     f.Email,
		Ativo:     f.Ativo,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
	}
}
