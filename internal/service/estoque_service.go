package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vlstore/internal/dto"
	"vlstore/internal/model"
	"vlstore/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Movimento describes one stock change applied inside a caller's transaction.
type Movimento struct {
	VariacaoID   uuid.UUID
	LojaID       uuid.UUID
	Delta        int
	Tipo         string
	Motivo       string
	ReferenciaID *uuid.UUID
	UsuarioID    *uuid.UUID
}

// EstoqueService owns every change to variation stock.
type EstoqueService interface {
	AjustarEstoque(ctx context.Context, ator Ator, variacaoID uuid.UUID, req dto.AjustarEstoqueRequest) (*dto.MovimentacaoEstoqueResponse, error)
	ListarAlertas(ctx context.Context, ator Ator, lojaID string) ([]dto.AlertaEstoqueResponse, error)
	ListarMovimentacoes(ctx context.Context, ator Ator, filter dto.MovimentacaoEstoqueFilter) (*dto.Pagina[dto.MovimentacaoEstoqueResponse], error)
	// MovimentarTx is called within a sale transaction. It applies the delta
	// conditionally and records the movement.
	MovimentarTx(ctx context.Context, tx *gorm.DB, m Movimento) (*model.MovimentacaoEstoque, error)
}

type estoqueService struct {
	variacoes repository.VariacaoRepository
	movRepo   repository.MovimentacaoEstoqueRepository
	cache     PrecoCache
	logs      LogService
}

func NewEstoqueService(
	variacoes repository.VariacaoRepository,
	movRepo repository.MovimentacaoEstoqueRepository,
	cache PrecoCache,
	logs LogService,
) EstoqueService {
	return &estoqueService{variacoes: variacoes, movRepo: movRepo, cache: cache, logs: logs}
}

func (s *estoqueService) AjustarEstoque(ctx context.Context, ator Ator, variacaoID uuid.UUID, req dto.AjustarEstoqueRequest) (*dto.MovimentacaoEstoqueResponse, error) {
	if req.Delta == 0 {
		return nil, regra("delta deve ser diferente de zero")
	}
	v, err := s.variacoes.FindByID(ctx, variacaoID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, naoEncontrado("variação não encontrada")
		}
		return nil, err
	}
	if v.Produto == nil || !ator.PodeAcessarLoja(v.Produto.LojaID) {
		return nil, proibido("variação de outra loja")
	}

	var mov *model.MovimentacaoEstoque
	txErr := runTx(ctx, s.variacoes.DB(), func(tx *gorm.DB) error {
		var err error
		mov, err = s.MovimentarTx(ctx, tx, Movimento{
			VariacaoID: v.ID,
			LojaID:     v.Produto.LojaID,
			Delta:      req.Delta,
			Tipo:       model.EstoqueAjuste,
			Motivo:     req.Motivo,
			UsuarioID:  ptrUUID(ator.UsuarioID),
		})
		return err
	})
	if txErr != nil {
		if errors.Is(txErr, repository.ErrEstoqueInsuficiente) {
			return nil, regra(fmt.Sprintf("estoque não pode ficar negativo (atual: %d)", v.Estoque))
		}
		return nil, txErr
	}

	invalidarVariacao(ctx, s.cache, v)
	s.logs.Registrar(ctx, ator, Entrada{
		Acao: AcaoAjustar, Entidade: EntVariacao, EntidadeID: ptrUUID(v.ID), LojaID: ptrUUID(v.Produto.LojaID),
		Detalhes: map[string]any{"delta": req.Delta, "motivo": req.Motivo, "estoque_novo": mov.EstoqueNovo},
	})
	resp := movimentacaoEstoqueToResponse(mov)
	return &resp, nil
}

func (s *estoqueService) MovimentarTx(ctx context.Context, tx *gorm.DB, m Movimento) (*model.MovimentacaoEstoque, error) {
	novo, err := s.variacoes.AjustarEstoqueTx(ctx, tx, m.VariacaoID, m.Delta)
	if err != nil {
		return nil, err
	}
	mov := &model.MovimentacaoEstoque{
		VariacaoID:      m.VariacaoID,
		LojaID:          m.LojaID,
		Tipo:            m.Tipo,
		Quantidade:      m.Delta,
		EstoqueAnterior: novo - m.Delta,
		EstoqueNovo:     novo,
		Motivo:          m.Motivo,
		ReferenciaID:    m.ReferenciaID,
		UsuarioID:       m.UsuarioID,
		CreatedAt:       time.Now(),
	}
	if err := s.movRepo.Create(ctx, tx, mov); err != nil {
		return nil, err
	}
	return mov, nil
}

func (s *estoqueService) ListarAlertas(ctx context.Context, ator Ator, lojaID string) ([]dto.AlertaEstoqueResponse, error) {
	loja, err := ator.escopoLoja(lojaID)
	if err != nil {
		return nil, err
	}
	var filtro *uuid.UUID
	if loja != "" {
		id, err := uuid.Parse(loja)
		if err != nil {
			return nil, regra("loja_id inválido")
		}
		filtro = &id
	}

	vs, err := s.variacoes.ListAlertas(ctx, filtro)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.AlertaEstoqueResponse, len(vs))
	for i, v := range vs {
		produto := ""
		if v.Produto != nil {
			produto = v.Produto.Nome
		}
		resp[i] = dto.AlertaEstoqueResponse{
			VariacaoID:    v.ID.String(),
			ProdutoID:     v.ProdutoID.String(),
			Produto:       produto,
			Variacao:      v.Nome,
			SKU:           v.SKU,
			Estoque:       v.Estoque,
			EstoqueMinimo: v.EstoqueMinimo,
			Faltante:      v.EstoqueMinimo - v.Estoque,
		}
	}
	return resp, nil
}

func (s *estoqueService) ListarMovimentacoes(ctx context.Context, ator Ator, filter dto.MovimentacaoEstoqueFilter) (*dto.Pagina[dto.MovimentacaoEstoqueResponse], error) {
	loja, err := ator.escopoLoja(filter.LojaID)
	if err != nil {
		return nil, err
	}
	filter.LojaID = loja
	filter.Normalizar()

	movs, total, err := s.movRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimentacaoEstoqueResponse, len(movs))
	for i := range movs {
		data[i] = movimentacaoEstoqueToResponse(&movs[i])
	}
	p := dto.NovaPagina(data, total, filter.Page, filter.Limit)
	return &p, nil
}

func movimentacaoEstoqueToResponse(m *model.MovimentacaoEstoque) dto.MovimentacaoEstoqueResponse {
	return dto.MovimentacaoEstoqueResponse{
		ID:              m.ID.String(),
		VariacaoID:      m.VariacaoID.String(),
		LojaID:          m.LojaID.String(),
		Tipo:            m.Tipo,
		Quantidade:      m.Quantidade,
		EstoqueAnterior: m.EstoqueAnterior,
		EstoqueNovo:     m.EstoqueNovo,
		Motivo:          m.Motivo,
		ReferenciaID:    uuidPtrStr(m.ReferenciaID),
		UsuarioID:       uuidPtrStr(m.UsuarioID),
		CreatedAt:       m.CreatedAt.Format(time.RFC3339),
	}
}
