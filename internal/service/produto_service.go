package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vlstore/internal/config"
	"vlstore/internal/dto"
	"vlstore/internal/model"
	"vlstore/internal/repository"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PrecoCache stores public price lookups keyed by barcode. A nil cache is valid.
type PrecoCache interface {
	Get(ctx context.Context, chave string) (*dto.ConsultaPrecoResponse, bool)
	Set(ctx context.Context, chave string, v *dto.ConsultaPrecoResponse)
	Invalidate(ctx context.Context, chaves ...string)
}

type ProdutoService interface {
	Criar(ctx context.Context, ator Ator, req dto.CriarProdutoRequest) (*dto.ProdutoResponse, error)
	Listar(ctx context.Context, ator Ator, filter dto.ProdutoFilter) (*dto.Pagina[dto.ProdutoResponse], error)
	Obter(ctx context.Context, ator Ator, id uuid.UUID) (*dto.ProdutoResponse, error)
	Atualizar(ctx context.Context, ator Ator, id uuid.UUID, req dto.AtualizarProdutoRequest) (*dto.ProdutoResponse, error)
	Desativar(ctx context.Context, ator Ator, id uuid.UUID) error

	AdicionarVariacao(ctx context.Context, ator Ator, produtoID uuid.UUID, req dto.VariacaoRequest) (*dto.VariacaoResponse, error)
	AtualizarVariacao(ctx context.Context, ator Ator, id uuid.UUID, req dto.AtualizarVariacaoRequest) (*dto.VariacaoResponse, error)
	DesativarVariacao(ctx context.Context, ator Ator, id uuid.UUID) error

	// ConsultarPreco is the public barcode lookup; lojaID nil searches every store.
	ConsultarPreco(ctx context.Context, barcode string, lojaID *uuid.UUID) (*dto.ConsultaPrecoResponse, error)
}

type produtoService struct {
	repo      repository.ProdutoRepository
	variacoes repository.VariacaoRepository
	movRepo   repository.MovimentacaoEstoqueRepository
	cache     PrecoCache
	logs      LogService
	cfg       *config.Config
}

func NewProdutoService(
	repo repository.ProdutoRepository,
	variacoes repository.VariacaoRepository,
	movRepo repository.MovimentacaoEstoqueRepository,
	cache PrecoCache,
	logs LogService,
	cfg *config.Config,
) ProdutoService {
	return &produtoService{repo: repo, variacoes: variacoes, movRepo: movRepo, cache: cache, logs: logs, cfg: cfg}
}

func (s *produtoService) Criar(ctx context.Context, ator Ator, req dto.CriarProdutoRequest) (*dto.ProdutoResponse, error) {
	lojaID, err := ator.lojaDestino(req.LojaID)
	if err != nil {
		return nil, err
	}
	if req.CodigoBarras != nil && *req.CodigoBarras != "" {
		if exists, err := s.repo.ExistsBarcode(ctx, lojaID, *req.CodigoBarras, nil); err != nil {
			return nil, err
		} else if exists {
			return nil, conflito("código de barras já cadastrado nesta loja")
		}
	}
	if err := s.validarSKUs(ctx, req.Variacoes); err != nil {
		return nil, err
	}

	p := &model.Produto{
		LojaID:       lojaID,
		Nome:         req.Nome,
		Descricao:    req.Descricao,
		Categoria:    req.Categoria,
		CodigoBarras: vazioParaNil(req.CodigoBarras),
		PrecoBase:    req.PrecoBase.Round(2),
		Ativo:        true,
	}
	for _, v := range req.Variacoes {
		p.Variacoes = append(p.Variacoes, s.novaVariacao(v))
	}

	txErr := runTx(ctx, s.variacoes.DB(), func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, p); err != nil {
			return err
		}
		for _, v := range p.Variacoes {
			if v.Estoque == 0 {
				continue
			}
			if err := s.movRepo.Create(ctx, tx, &model.MovimentacaoEstoque{
				VariacaoID:      v.ID,
				LojaID:          lojaID,
				Tipo:            model.EstoqueInicial,
				Quantidade:      v.Estoque,
				EstoqueAnterior: 0,
				EstoqueNovo:     v.Estoque,
				Motivo:          "Estoque inicial",
				UsuarioID:       ptrUUID(ator.UsuarioID),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if repository.IsUniqueViolation(txErr) {
			return nil, conflito("SKU já cadastrado")
		}
		return nil, txErr
	}

	s.invalidarPrecos(ctx, p)
	s.logs.Registrar(ctx, ator, Entrada{
		Acao: AcaoCriar, Entidade: EntProduto, EntidadeID: ptrUUID(p.ID), LojaID: ptrUUID(lojaID),
		Detalhes: map[string]any{"nome": p.Nome, "variacoes": len(p.Variacoes)},
	})
	return produtoToResponse(p), nil
}

func (s *produtoService) Listar(ctx context.Context, ator Ator, filter dto.ProdutoFilter) (*dto.Pagina[dto.ProdutoResponse], error) {
	loja, err := ator.escopoLoja(filter.LojaID)
	if err != nil {
		return nil, err
	}
	filter.LojaID = loja
	filter.Normalizar()

	produtos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProdutoResponse, len(produtos))
	for i := range produtos {
		data[i] = *produtoToResponse(&produtos[i])
	}
	p := dto.NovaPagina(data, total, filter.Page, filter.Limit)
	return &p, nil
}

func (s *produtoService) Obter(ctx context.Context, ator Ator, id uuid.UUID) (*dto.ProdutoResponse, error) {
	p, err := s.find(ctx, ator, id)
	if err != nil {
		return nil, err
	}
	return produtoToResponse(p), nil
}

func (s *produtoService) Atualizar(ctx context.Context, ator Ator, id uuid.UUID, req dto.AtualizarProdutoRequest) (*dto.ProdutoResponse, error) {
	p, err := s.find(ctx, ator, id)
	if err != nil {
		return nil, err
	}
	// Old barcodes must be evicted too when the barcode itself changes
	s.invalidarPrecos(ctx, p)
	precoAnterior := p.PrecoBase

	if req.Nome != nil {
		p.Nome = *req.Nome
	}
	if req.Descricao != nil {
		p.Descricao = req.Descricao
	}
	if req.Categoria != nil {
		p.Categoria = *req.Categoria
	}
	if req.CodigoBarras != nil {
		novo := vazioParaNil(req.CodigoBarras)
		if novo != nil {
			if exists, err := s.repo.ExistsBarcode(ctx, p.LojaID, *novo, &p.ID); err != nil {
				return nil, err
			} else if exists {
				return nil, conflito("código de barras já cadastrado nesta loja")
			}
		}
		p.CodigoBarras = novo
	}
	if req.PrecoBase != nil {
		p.PrecoBase = req.PrecoBase.Round(2)
	}
	if req.Ativo != nil {
		p.Ativo = *req.Ativo
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.invalidarPrecos(ctx, p)
	detalhes := map[string]any{"alteracoes": req}
	if !precoAnterior.Equal(p.PrecoBase) {
		detalhes["preco_anterior"] = precoAnterior
		detalhes["preco_novo"] = p.PrecoBase
	}
	s.logs.Registrar(ctx, ator, Entrada{Acao: AcaoAtualizar, Entidade: EntProduto, EntidadeID: ptrUUID(id), LojaID: ptrUUID(p.LojaID), Detalhes: detalhes})
	return produtoToResponse(p), nil
}

func (s *produtoService) Desativar(ctx context.Context, ator Ator, id uuid.UUID) error {
	p, err := s.find(ctx, ator, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetAtivo(ctx, id, false); err != nil {
		return err
	}
	s.invalidarPrecos(ctx, p)
	s.logs.Registrar(ctx, ator, Entrada{Acao: AcaoDesativar, Entidade: EntProduto, EntidadeID: ptrUUID(id), LojaID: ptrUUID(p.LojaID)})
	return nil
}

func (s *produtoService) AdicionarVariacao(ctx context.Context, ator Ator, produtoID uuid.UUID, req dto.VariacaoRequest) (*dto.VariacaoResponse, error) {
	p, err := s.find(ctx, ator, produtoID)
	if err != nil {
		return nil, err
	}
	if err := s.validarSKUs(ctx, []dto.VariacaoRequest{req}); err != nil {
		return nil, err
	}

	v := s.novaVariacao(req)
	v.ProdutoID = p.ID
	txErr := runTx(ctx, s.variacoes.DB(), func(tx *gorm.DB) error {
		if err := s.variacoes.Create(ctx, tx, &v); err != nil {
			return err
		}
		if v.Estoque == 0 {
			return nil
		}
		return s.movRepo.Create(ctx, tx, &model.MovimentacaoEstoque{
			VariacaoID:  v.ID,
			LojaID:      p.LojaID,
			Tipo:        model.EstoqueInicial,
			Quantidade:  v.Estoque,
			EstoqueNovo: v.Estoque,
			Motivo:      "Estoque inicial",
			UsuarioID:   ptrUUID(ator.UsuarioID),
		})
	})
	if txErr != nil {
		if repository.IsUniqueViolation(txErr) {
			return nil, conflito("SKU já cadastrado")
		}
		return nil, txErr
	}

	p.Variacoes = append(p.Variacoes, v)
	s.invalidarPrecos(ctx, p)
	s.logs.Registrar(ctx, ator, Entrada{
		Acao: AcaoCriar, Entidade: EntVariacao, EntidadeID: ptrUUID(v.ID), LojaID: ptrUUID(p.LojaID),
		Detalhes: map[string]any{"produto_id": p.ID, "sku": v.SKU},
	})
	resp := variacaoToResponse(&v, p.PrecoBase)
	return &resp, nil
}

func (s *produtoService) AtualizarVariacao(ctx context.Context, ator Ator, id uuid.UUID, req dto.AtualizarVariacaoRequest) (*dto.VariacaoResponse, error) {
	v, err := s.findVariacao(ctx, ator, id)
	if err != nil {
		return nil, err
	}
	s.invalidarVariacao(ctx, v)

	if req.Nome != nil {
		v.Nome = *req.Nome
	}
	if req.SKU != nil && *req.SKU != v.SKU {
		if exists, err := s.variacoes.ExistsSKU(ctx, *req.SKU, &v.ID); err != nil {
			return nil, err
		} else if exists {
			return nil, conflito(fmt.Sprintf("SKU %s já cadastrado", *req.SKU))
		}
		v.SKU = *req.SKU
	}
	if req.CodigoBarras != nil {
		v.CodigoBarras = vazioParaNil(req.CodigoBarras)
	}
	switch {
	case req.HerdarPreco:
		v.Preco = nil
	case req.Preco != nil:
		preco := req.Preco.Round(2)
		v.Preco = &preco
	}
	if req.EstoqueMinimo != nil {
		v.EstoqueMinimo = *req.EstoqueMinimo
	}
	if req.Ativo != nil {
		v.Ativo = *req.Ativo
	}
	if err := s.variacoes.Update(ctx, v); err != nil {
		return nil, err
	}

	s.invalidarVariacao(ctx, v)
	s.logs.Registrar(ctx, ator, Entrada{Acao: AcaoAtualizar, Entidade: EntVariacao, EntidadeID: ptrUUID(id), LojaID: ptrUUID(v.Produto.LojaID), Detalhes: req})
	resp := variacaoToResponse(v, v.Produto.PrecoBase)
	return &resp, nil
}

func (s *produtoService) DesativarVariacao(ctx context.Context, ator Ator, id uuid.UUID) error {
	v, err := s.findVariacao(ctx, ator, id)
	if err != nil {
		return err
	}
	if err := s.variacoes.SetAtivo(ctx, id, false); err != nil {
		return err
	}
	s.invalidarVariacao(ctx, v)
	s.logs.Registrar(ctx, ator, Entrada{Acao: AcaoDesativar, Entidade: EntVariacao, EntidadeID: ptrUUID(id), LojaID: ptrUUID(v.Produto.LojaID)})
	return nil
}

func (s *produtoService) ConsultarPreco(ctx context.Context, barcode string, lojaID *uuid.UUID) (*dto.ConsultaPrecoResponse, error) {
	barcode = strings.TrimSpace(barcode)
	chave := chavePreco(barcode, lojaID)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, chave); ok {
			return cached, nil
		}
	}

	resp, err := s.resolverPreco(ctx, barcode, lojaID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, chave, resp)
	}
	return resp, nil
}

// resolverPreco matches a variation barcode first, then a product barcode.
func (s *produtoService) resolverPreco(ctx context.Context, barcode string, lojaID *uuid.UUID) (*dto.ConsultaPrecoResponse, error) {
	v, err := s.variacoes.FindByBarcode(ctx, barcode)
	if err == nil && v.Produto != nil && v.Produto.Ativo && (lojaID == nil || v.Produto.LojaID == *lojaID) {
		return &dto.ConsultaPrecoResponse{
			CodigoBarras: barcode,
			Produto:      v.Produto.Nome,
			Categoria:    v.Produto.Categoria,
			Variacoes:    []dto.PrecoVariacao{precoVariacao(v, v.Produto.PrecoBase)},
		}, nil
	} else if err != nil && !repository.IsNotFound(err) {
		return nil, err
	}

	p, err := s.repo.FindByBarcode(ctx, lojaID, barcode)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, naoEncontrado("produto não encontrado")
		}
		return nil, err
	}
	resp := &dto.ConsultaPrecoResponse{
		CodigoBarras: barcode,
		Produto:      p.Nome,
		Categoria:    p.Categoria,
		Variacoes:    make([]dto.PrecoVariacao, 0, len(p.Variacoes)),
	}
	for i := range p.Variacoes {
		resp.Variacoes = append(resp.Variacoes, precoVariacao(&p.Variacoes[i], p.PrecoBase))
	}
	return resp, nil
}

// validarSKUs reports every duplicated or already registered SKU at once.
func (s *produtoService) validarSKUs(ctx context.Context, vs []dto.VariacaoRequest) error {
	var result *multierror.Error
	vistos := make(map[string]bool, len(vs))
	for _, v := range vs {
		if vistos[v.SKU] {
			result = multierror.Append(result, fmt.Errorf("SKU %s repetido na requisição", v.SKU))
			continue
		}
		vistos[v.SKU] = true
		exists, err := s.variacoes.ExistsSKU(ctx, v.SKU, nil)
		if err != nil {
			return err
		}
		if exists {
			result = multierror.Append(result, fmt.Errorf("SKU %s já cadastrado", v.SKU))
		}
	}
	if result == nil {
		return nil
	}
	result.ErrorFormat = listaErros
	return conflito(result.Error())
}

func (s *produtoService) novaVariacao(req dto.VariacaoRequest) model.Variacao {
	minimo := s.cfg.EstoqueMinimoPadrao
	if req.EstoqueMinimo != nil {
		minimo = *req.EstoqueMinimo
	}
	v := model.Variacao{
		Nome:          req.Nome,
		SKU:           req.SKU,
		CodigoBarras:  vazioParaNil(req.CodigoBarras),
		Estoque:       req.Estoque,
		EstoqueMinimo: minimo,
		Ativo:         true,
	}
	if req.Preco != nil {
		preco := req.Preco.Round(2)
		v.Preco = &preco
	}
	return v
}

func (s *produtoService) find(ctx context.Context, ator Ator, id uuid.UUID) (*model.Produto, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, naoEncontrado("produto não encontrado")
		}
		return nil, err
	}
	if !ator.PodeAcessarLoja(p.LojaID) {
		return nil, proibido("produto de outra loja")
	}
	return p, nil
}

func (s *produtoService) findVariacao(ctx context.Context, ator Ator, id uuid.UUID) (*model.Variacao, error) {
	v, err := s.variacoes.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, naoEncontrado("variação não encontrada")
		}
		return nil, err
	}
	if v.Produto == nil || !ator.PodeAcessarLoja(v.Produto.LojaID) {
		return nil, proibido("variação de outra loja")
	}
	return v, nil
}

func (s *produtoService) invalidarPrecos(ctx context.Context, p *model.Produto) {
	if s.cache == nil {
		return
	}
	var chaves []string
	if p.CodigoBarras != nil {
		chaves = append(chaves, chavesPreco(*p.CodigoBarras, p.LojaID)...)
	}
	for _, v := range p.Variacoes {
		if v.CodigoBarras != nil {
			chaves = append(chaves, chavesPreco(*v.CodigoBarras, p.LojaID)...)
		}
	}
	if len(chaves) > 0 {
		s.cache.Invalidate(ctx, chaves...)
	}
}

func (s *produtoService) invalidarVariacao(ctx context.Context, v *model.Variacao) {
	invalidarVariacao(ctx, s.cache, v)
}

// invalidarVariacao evicts the variation's own barcode and its parent's.
func invalidarVariacao(ctx context.Context, cache PrecoCache, v *model.Variacao) {
	if cache == nil || v.Produto == nil {
		return
	}
	var chaves []string
	if v.CodigoBarras != nil {
		chaves = append(chaves, chavesPreco(*v.CodigoBarras, v.Produto.LojaID)...)
	}
	if v.Produto.CodigoBarras != nil {
		chaves = append(chaves, chavesPreco(*v.Produto.CodigoBarras, v.Produto.LojaID)...)
	}
	if len(chaves) > 0 {
		cache.Invalidate(ctx, chaves...)
	}
}

func chavePreco(barcode string, lojaID *uuid.UUID) string {
	if lojaID == nil {
		return "preco:" + barcode
	}
	return "preco:" + barcode + ":" + lojaID.String()
}

// chavesPreco lists both the store-scoped and the global lookup keys.
func chavesPreco(barcode string, lojaID uuid.UUID) []string {
	return []string{chavePreco(barcode, nil), chavePreco(barcode, &lojaID)}
}

func listaErros(es []error) string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func vazioParaNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func precoVariacao(v *model.Variacao, base decimal.Decimal) dto.PrecoVariacao {
	return dto.PrecoVariacao{
		Nome:       v.Nome,
		SKU:        v.SKU,
		Preco:      v.PrecoEfetivo(base),
		Disponivel: v.Ativo && v.Estoque > 0,
	}
}

func variacaoToResponse(v *model.Variacao, base decimal.Decimal) dto.VariacaoResponse {
	return dto.VariacaoResponse{
		ID:            v.ID.String(),
		ProdutoID:     v.ProdutoID.String(),
		Nome:          v.Nome,
		SKU:           v.SKU,
		CodigoBarras:  v.CodigoBarras,
		Preco:         v.Preco,
		PrecoEfetivo:  v.PrecoEfetivo(base),
		Estoque:       v.Estoque,
		EstoqueMinimo: v.EstoqueMinimo,
		EstoqueBaixo:  v.Estoque <= v.EstoqueMinimo,
		Ativo:         v.Ativo,
	}
}

func produtoToResponse(p *model.Produto) *dto.ProdutoResponse {
	resp := &dto.ProdutoResponse{
		ID:           p.ID.String(),
		LojaID:       p.LojaID.String(),
		Nome:         p.Nome,
		Descricao:    p.Descricao,
		Categoria:    p.Categoria,
		CodigoBarras: p.CodigoBarras,
		PrecoBase:    p.PrecoBase,
		Ativo:        p.Ativo,
		Variacoes:    make([]dto.VariacaoResponse, len(p.Variacoes)),
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
	for i := range p.Variacoes {
		resp.Variacoes[i] = variacaoToResponse(&p.Variacoes[i], p.PrecoBase)
	}
	return resp
}
