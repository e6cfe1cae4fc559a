package service

import (
	"context"
	"time"

	"vlstore/internal/dto"
	"vlstore/internal/model"
	"vlstore/internal/repository"

	"github.com/google/uuid"
)

type LojaService interface {
	Criar(ctx context.Context, ator Ator, req dto.CriarLojaRequest) (*dto.LojaResponse, error)
	Listar(ctx context.Context, ator Ator, incluirInativas bool) ([]dto.LojaResponse, error)
	Obter(ctx context.Context, ator Ator, id uuid.UUID) (*dto.LojaResponse, error)
	Atualizar(ctx context.Context, ator Ator, id uuid.UUID, req dto.AtualizarLojaRequest) (*dto.LojaResponse, error)
	Desativar(ctx context.Context, ator Ator, id uuid.UUID) error
}

type lojaService struct {
	repo repository.LojaRepository
	logs LogService
}

func NewLojaService(repo repository.LojaRepository, logs LogService) LojaService {
	return &lojaService{repo: repo, logs: logs}
}

func (s *lojaService) Criar(ctx context.Context, ator Ator, req dto.CriarLojaRequest) (*dto.LojaResponse, error) {
	cnpj := soDigitos(req.CNPJ)
	if !ValidarCNPJ(cnpj) {
		return nil, regra("CNPJ inválido")
	}
	if _, err := s.repo.FindByCNPJ(ctx, cnpj); err == nil {
		return nil, conflito("CNPJ já cadastrado")
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	loja := &model.Loja{
		Nome:     req.Nome,
		CNPJ:     cnpj,
		Endereco: req.Endereco,
		Telefone: req.Telefone,
		Ativo:    true,
	}
	if err := s.repo.Create(ctx, loja); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, conflito("CNPJ já cadastrado")
		}
		return nil, err
	}
	s.logs.Registrar(ctx, ator, Entrada{
		Acao: AcaoCriar, Entidade: EntLoja, EntidadeID: ptrUUID(loja.ID), LojaID: ptrUUID(loja.ID),
		Detalhes: map[string]any{"nome": loja.Nome, "cnpj": loja.CNPJ},
	})
	return lojaToResponse(loja), nil
}

// Listar returns every store to admins and only their own store to others.
func (s *lojaService) Listar(ctx context.Context, ator Ator, incluirInativas bool) ([]dto.LojaResponse, error) {
	if !ator.IsAdmin() {
		if ator.LojaID == nil {
			return []dto.LojaResponse{}, nil
		}
		loja, err := s.repo.FindByID(ctx, *ator.LojaID)
		if err != nil {
			if repository.IsNotFound(err) {
				return []dto.LojaResponse{}, nil
			}
			return nil, err
		}
		return []dto.LojaResponse{*lojaToResponse(loja)}, nil
	}

	lojas, err := s.repo.List(ctx, incluirInativas)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.LojaResponse, len(lojas))
	for i := range lojas {
		resp[i] = *lojaToResponse(&lojas[i])
	}
	return resp, nil
}

func (s *lojaService) Obter(ctx context.Context, ator Ator, id uuid.UUID) (*dto.LojaResponse, error) {
	if !ator.PodeAcessarLoja(id) {
		return nil, proibido("sem acesso a esta loja")
	}
	loja, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return lojaToResponse(loja), nil
}

func (s *lojaService) Atualizar(ctx context.Context, ator Ator, id uuid.UUID, req dto.AtualizarLojaRequest) (*dto.LojaResponse, error) {
	loja, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Nome != nil {
		loja.Nome = *req.Nome
	}
	if req.Endereco != nil {
		loja.Endereco = req.Endereco
	}
	if req.Telefone != nil {
		loja.Telefone = req.Telefone
	}
	if req.Ativo != nil {
		loja.Ativo = *req.Ativo
	}
	if err := s.repo.Update(ctx, loja); err != nil {
		return nil, err
	}
	s.logs.Registrar(ctx, ator, Entrada{Acao: AcaoAtualizar, Entidade: EntLoja, EntidadeID: ptrUUID(id), LojaID: ptrUUID(id), Detalhes: req})
	return lojaToResponse(loja), nil
}

func (s *lojaService) Desativar(ctx context.Context, ator Ator, id uuid.UUID) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetAtivo(ctx, id, false); err != nil {
		return err
	}
	s.logs.Registrar(ctx, ator, Entrada{Acao: AcaoDesativar, Entidade: EntLoja, EntidadeID: ptrUUID(id), LojaID: ptrUUID(id)})
	return nil
}

func (s *lojaService) find(ctx context.Context, id uuid.UUID) (*model.Loja, error) {
	loja, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, naoEncontrado("loja não encontrada")
		}
		return nil, err
	}
	return loja, nil
}

func lojaToResponse(l *model.Loja) *dto.LojaResponse {
	return &dto.LojaResponse{
		ID:        l.ID.String(),
		Nome:      l.Nome,
		CNPJ:      l.CNPJ,
		Endereco:  l.Endereco,
		Telefone:  l.Telefone,
		Ativo:     l.Ativo,
		CreatedAt: l.CreatedAt.Format(time.RFC3339),
	}
}
