package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"vlstore/internal/dto"
	"vlstore/internal/model"
	"vlstore/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Enfileirador schedules the asynchronous receipt job for a sale.
type Enfileirador interface {
	EnqueueComprovante(ctx context.Context, vendaID uuid.UUID, clienteEmail *string) error
}

// ComprovanteGerador renders a sale receipt and returns the file path.
type ComprovanteGerador interface {
	Gerar(v *model.Venda) (string, error)
}

type VendaService interface {
	Registrar(ctx context.Context, ator Ator, req dto.RegistrarVendaRequest) (*dto.VendaResponse, error)
	Cancelar(ctx context.Context, ator Ator, id uuid.UUID, motivo string) (*dto.VendaResponse, error)
	Obter(ctx context.Context, ator Ator, id uuid.UUID) (*dto.VendaResponse, error)
	Listar(ctx context.Context, ator Ator, filter dto.VendaFilter) (*dto.Pagina[dto.VendaResponse], error)
	// Comprovante returns the receipt PDF path, rendering it when the worker
	// has not done so yet.
	Comprovante(ctx context.Context, ator Ator, id uuid.UUID) (string, error)
}

type vendaService struct {
	repo      repository.VendaRepository
	caixaRepo repository.CaixaRepository
	variacoes repository.VariacaoRepository
	estoque   EstoqueService
	cache     PrecoCache
	logs      LogService
	fila      Enfileirador
	gerador   ComprovanteGerador
}

func NewVendaService(
	repo repository.VendaRepository,
	caixaRepo repository.CaixaRepository,
	variacoes repository.VariacaoRepository,
	estoque EstoqueService,
	cache PrecoCache,
	logs LogService,
	fila Enfileirador,
	gerador ComprovanteGerador,
) VendaService {
	return &vendaService{
		repo:      repo,
		caixaRepo: caixaRepo,
		variacoes: variacoes,
		estoque:   estoque,
		cache:     cache,
		logs:      logs,
		fila:      fila,
		gerador:   gerador,
	}
}

type itemResolvido struct {
	variacao   *model.Variacao
	quantidade int
	preco      decimal.Decimal
	desconto   decimal.Decimal
	subtotal   decimal.Decimal
}

// ── Registrar ─────────────────────────────────────────────────────────────────
//   1. Validate caixa is open and owned by the caller
//   2. Resolve each item: active variation of the caixa's store, price, discount
//   3. Reconcile payments: change only from cash
//   4. BEGIN TX: lock caixa, nextval numero, venda+itens+pagamentos,
//      conditional stock decrement, one cash movement per payment method
//   5. COMMIT, then audit log and async receipt job

func (s *vendaService) Registrar(ctx context.Context, ator Ator, req dto.RegistrarVendaRequest) (*dto.VendaResponse, error) {
	caixaID, err := uuid.Parse(req.CaixaID)
	if err != nil {
		return nil, regra("caixa_id inválido")
	}
	caixa, err := s.caixaRepo.FindByID(ctx, caixaID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, naoEncontrado("caixa não encontrado")
		}
		return nil, err
	}
	if caixa.Status != model.CaixaAberto {
		return nil, regra("caixa não está aberto")
	}
	if caixa.UsuarioID != ator.UsuarioID {
		return nil, proibido("caixa pertence a outro operador")
	}

	itens, subtotal, descontoItens, err := s.resolverItens(ctx, caixa.LojaID, req.Itens)
	if err != nil {
		return nil, err
	}

	desconto := req.Desconto.Round(2)
	if desconto.IsNegative() {
		return nil, regra("desconto não pode ser negativo")
	}
	if desconto.GreaterThan(subtotal) {
		return nil, regra("desconto maior que o subtotal")
	}
	total := subtotal.Sub(desconto)

	pag, err := conciliarPagamentos(req.Pagamentos, total)
	if err != nil {
		return nil, err
	}

	var venda model.Venda
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		locked, err := s.caixaRepo.FindByIDForUpdate(ctx, tx, caixaID)
		if err != nil {
			return err
		}
		if locked.Status != model.CaixaAberto {
			return regra("caixa não está aberto")
		}

		numero, err := s.repo.NextNumero(ctx, tx)
		if err != nil {
			return err
		}
		venda = model.Venda{
			Numero:        numero,
			LojaID:        caixa.LojaID,
			CaixaID:       caixaID,
			UsuarioID:     ator.UsuarioID,
			Subtotal:      subtotal,
			DescontoItens: descontoItens,
			Desconto:      desconto,
			Total:         total,
			Troco:         pag.troco,
			Status:        model.VendaConcluida,
			ClienteEmail:  req.ClienteEmail,
		}
		for _, it := range itens {
			venda.Itens = append(venda.Itens, model.VendaItem{
				VariacaoID:    it.variacao.ID,
				ProdutoID:     it.variacao.ProdutoID,
				Descricao:     it.variacao.Descricao(),
				Quantidade:    it.quantidade,
				PrecoUnitario: it.preco,
				Desconto:      it.desconto,
				Subtotal:      it.subtotal,
			})
		}
		for _, forma := range model.FormasPagamento {
			if valor, ok := pag.porForma[forma]; ok {
				venda.Pagamentos = append(venda.Pagamentos, model.VendaPagamento{Forma: forma, Valor: valor})
			}
		}
		if err := s.repo.Create(ctx, tx, &venda); err != nil {
			return err
		}

		motivo := fmt.Sprintf("Venda #%d", numero)
		for _, it := range itens {
			_, err := s.estoque.MovimentarTx(ctx, tx, Movimento{
				VariacaoID:   it.variacao.ID,
				LojaID:       caixa.LojaID,
				Delta:        -it.quantidade,
				Tipo:         model.EstoqueVenda,
				Motivo:       motivo,
				ReferenciaID: ptrUUID(venda.ID),
				UsuarioID:    ptrUUID(ator.UsuarioID),
			})
			if errors.Is(err, repository.ErrEstoqueInsuficiente) {
				return conflito(fmt.Sprintf("estoque insuficiente para %s", it.variacao.Descricao()))
			}
			if err != nil {
				return err
			}
		}

		return s.movimentarCaixa(ctx, tx, &venda, pag, model.MovVenda, motivo, 1, ator.UsuarioID)
	})
	if txErr != nil {
		return nil, txErr
	}

	for _, it := range itens {
		invalidarVariacao(ctx, s.cache, it.variacao)
	}
	s.logs.Registrar(ctx, ator, Entrada{
		Acao: AcaoRegistrar, Entidade: EntVenda, EntidadeID: ptrUUID(venda.ID), LojaID: ptrUUID(venda.LojaID),
		Detalhes: map[string]any{"numero": venda.Numero, "total": venda.Total, "itens": len(venda.Itens)},
	})

	// Async receipt job (best-effort, fire & forget)
	if s.fila != nil {
		if err := s.fila.EnqueueComprovante(ctx, venda.ID, req.ClienteEmail); err != nil {
			log.Warn().Err(err).Str("venda_id", venda.ID.String()).Msg("falha ao enfileirar comprovante")
		}
	}
	return vendaToResponse(&venda), nil
}

// ── Cancelar ──────────────────────────────────────────────────────────────────

func (s *vendaService) Cancelar(ctx context.Context, ator Ator, id uuid.UUID, motivo string) (*dto.VendaResponse, error) {
	if !ator.Gerencia() {
		return nil, proibido("apenas admin ou gerente podem cancelar vendas")
	}
	venda, err := s.find(ctx, ator, id)
	if err != nil {
		return nil, err
	}
	if venda.Status == model.VendaCancelada {
		return nil, regra("venda já está cancelada")
	}

	pag := pagamentosRegistrados(venda)
	agora := time.Now()
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		caixa, err := s.caixaRepo.FindByIDForUpdate(ctx, tx, venda.CaixaID)
		if err != nil {
			return err
		}
		if caixa.Status != model.CaixaAberto {
			return regra("o caixa desta venda já foi fechado")
		}
		if err := s.repo.Cancelar(ctx, tx, venda.ID, motivo, agora); err != nil {
			if errors.Is(err, repository.ErrEstadoAlterado) {
				return regra("venda já está cancelada")
			}
			return err
		}

		desc := fmt.Sprintf("Cancelamento venda #%d: %s", venda.Numero, motivo)
		for _, item := range venda.Itens {
			if _, err := s.estoque.MovimentarTx(ctx, tx, Movimento{
				VariacaoID:   item.VariacaoID,
				LojaID:       venda.LojaID,
				Delta:        item.Quantidade,
				Tipo:         model.EstoqueCancelamento,
				Motivo:       desc,
				ReferenciaID: ptrUUID(venda.ID),
				UsuarioID:    ptrUUID(ator.UsuarioID),
			}); err != nil {
				return err
			}
		}
		return s.movimentarCaixa(ctx, tx, venda, pag, model.MovCancelamento, desc, -1, ator.UsuarioID)
	})
	if txErr != nil {
		return nil, txErr
	}

	venda.Status = model.VendaCancelada
	venda.MotivoCancelamento = &motivo
	venda.CanceladaEm = &agora
	s.invalidarItens(ctx, venda)
	s.logs.Registrar(ctx, ator, Entrada{
		Acao: AcaoCancelar, Entidade: EntVenda, EntidadeID: ptrUUID(venda.ID), LojaID: ptrUUID(venda.LojaID),
		Detalhes: map[string]any{"numero": venda.Numero, "motivo": motivo},
	})
	return vendaToResponse(venda), nil
}

func (s *vendaService) Obter(ctx context.Context, ator Ator, id uuid.UUID) (*dto.VendaResponse, error) {
	venda, err := s.find(ctx, ator, id)
	if err != nil {
		return nil, err
	}
	return vendaToResponse(venda), nil
}

// Listar returns a paginated list of sales, newest first.
func (s *vendaService) Listar(ctx context.Context, ator Ator, filter dto.VendaFilter) (*dto.Pagina[dto.VendaResponse], error) {
	loja, err := ator.escopoLoja(filter.LojaID)
	if err != nil {
		return nil, err
	}
	filter.LojaID = loja
	filter.Normalizar()

	vendas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.VendaResponse, len(vendas))
	for i := range vendas {
		data[i] = *vendaToResponse(&vendas[i])
	}
	p := dto.NovaPagina(data, total, filter.Page, filter.Limit)
	return &p, nil
}

func (s *vendaService) Comprovante(ctx context.Context, ator Ator, id uuid.UUID) (string, error) {
	venda, err := s.find(ctx, ator, id)
	if err != nil {
		return "", err
	}
	if venda.ComprovantePath != nil {
		if _, err := os.Stat(*venda.ComprovantePath); err == nil {
			return *venda.ComprovantePath, nil
		}
	}
	if s.gerador == nil {
		return "", naoEncontrado("comprovante ainda não disponível")
	}
	path, err := s.gerador.Gerar(venda)
	if err != nil {
		return "", fmt.Errorf("gerar comprovante: %w", err)
	}
	if err := s.repo.SetComprovantePath(ctx, venda.ID, path); err != nil {
		log.Warn().Err(err).Str("venda_id", venda.ID.String()).Msg("falha ao salvar caminho do comprovante")
	}
	return path, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// invalidarItens evicts the cached price lookups of every variation whose
// stock the cancellation restored.
func (s *vendaService) invalidarItens(ctx context.Context, venda *model.Venda) {
	vistas := make(map[uuid.UUID]bool, len(venda.Itens))
	for _, item := range venda.Itens {
		if vistas[item.VariacaoID] {
			continue
		}
		vistas[item.VariacaoID] = true
		v, err := s.variacoes.FindByID(ctx, item.VariacaoID)
		if err != nil {
			log.Warn().Err(err).Str("variacao_id", item.VariacaoID.String()).Msg("falha ao invalidar cache de preço")
			continue
		}
		invalidarVariacao(ctx, s.cache, v)
	}
}

func (s *vendaService) find(ctx context.Context, ator Ator, id uuid.UUID) (*model.Venda, error) {
	venda, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, naoEncontrado("venda não encontrada")
		}
		return nil, err
	}
	if !ator.PodeAcessarLoja(venda.LojaID) {
		return nil, proibido("venda de outra loja")
	}
	return venda, nil
}

func (s *vendaService) resolverItens(ctx context.Context, lojaID uuid.UUID, req []dto.ItemVendaRequest) ([]itemResolvido, decimal.Decimal, decimal.Decimal, error) {
	if len(req) == 0 {
		return nil, decimal.Zero, decimal.Zero, regra("a venda precisa de ao menos um item")
	}
	itens := make([]itemResolvido, 0, len(req))
	subtotal := decimal.Zero
	descontoItens := decimal.Zero

	for _, item := range req {
		vid, err := uuid.Parse(item.VariacaoID)
		if err != nil {
			return nil, decimal.Zero, decimal.Zero, regra("variacao_id inválido")
		}
		if item.Quantidade < 1 {
			return nil, decimal.Zero, decimal.Zero, regra("quantidade deve ser ao menos 1")
		}
		v, err := s.variacoes.FindByID(ctx, vid)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, decimal.Zero, decimal.Zero, naoEncontrado(fmt.Sprintf("variação %s não encontrada", item.VariacaoID))
			}
			return nil, decimal.Zero, decimal.Zero, err
		}
		if v.Produto == nil || v.Produto.LojaID != lojaID {
			return nil, decimal.Zero, decimal.Zero, regra(fmt.Sprintf("variação %s não pertence à loja do caixa", v.SKU))
		}
		if !v.Ativo || !v.Produto.Ativo {
			return nil, decimal.Zero, decimal.Zero, regra(fmt.Sprintf("%s está inativo e não pode ser vendido", v.Descricao()))
		}

		preco := v.PrecoEfetivo(v.Produto.PrecoBase)
		bruto := preco.Mul(decimal.NewFromInt(int64(item.Quantidade)))
		desconto := item.Desconto.Round(2)
		if desconto.IsNegative() {
			return nil, decimal.Zero, decimal.Zero, regra("desconto do item não pode ser negativo")
		}
		if desconto.GreaterThan(bruto) {
			return nil, decimal.Zero, decimal.Zero, regra(fmt.Sprintf("desconto maior que o valor do item %s", v.Descricao()))
		}
		linha := bruto.Sub(desconto).Round(2)

		subtotal = subtotal.Add(linha)
		descontoItens = descontoItens.Add(desconto)
		itens = append(itens, itemResolvido{
			variacao:   v,
			quantidade: item.Quantidade,
			preco:      preco,
			desconto:   desconto,
			subtotal:   linha,
		})
	}
	return itens, subtotal, descontoItens, nil
}

// pagamentos is a reconciled payment set: totals per method plus change.
type pagamentos struct {
	porForma map[string]decimal.Decimal
	troco    decimal.Decimal
}

// liquidoCaixa is what each method actually leaves in the register: cash
// net of change, other methods in full.
func (p pagamentos) liquidoCaixa(forma string) decimal.Decimal {
	v := p.porForma[forma]
	if forma == model.FormaDinheiro {
		return v.Sub(p.troco)
	}
	return v
}

// conciliarPagamentos merges payments per method and enforces that change
// only ever comes out of cash.
func conciliarPagamentos(req []dto.PagamentoRequest, total decimal.Decimal) (pagamentos, error) {
	p := pagamentos{porForma: make(map[string]decimal.Decimal, len(model.FormasPagamento))}
	if len(req) == 0 {
		return p, regra("informe ao menos um pagamento")
	}
	pago := decimal.Zero
	naoDinheiro := decimal.Zero
	for _, pg := range req {
		if !formaValida(pg.Forma) {
			return p, regra(fmt.Sprintf("forma de pagamento inválida: %s", pg.Forma))
		}
		valor := pg.Valor.Round(2)
		if !valor.IsPositive() {
			return p, regra("valor do pagamento deve ser maior que zero")
		}
		p.porForma[pg.Forma] = p.porForma[pg.Forma].Add(valor)
		pago = pago.Add(valor)
		if pg.Forma != model.FormaDinheiro {
			naoDinheiro = naoDinheiro.Add(valor)
		}
	}
	if pago.LessThan(total) {
		return p, regra(fmt.Sprintf("pagamento insuficiente: total %s, pago %s", total.StringFixed(2), pago.StringFixed(2)))
	}
	if naoDinheiro.GreaterThan(total) {
		return p, regra("pagamentos em cartão/pix não podem exceder o total da venda")
	}
	p.troco = pago.Sub(total)
	if p.troco.GreaterThan(p.porForma[model.FormaDinheiro]) {
		return p, regra("troco só pode ser dado em dinheiro")
	}
	return p, nil
}

// pagamentosRegistrados rebuilds the reconciled payments of a stored sale.
func pagamentosRegistrados(v *model.Venda) pagamentos {
	p := pagamentos{porForma: make(map[string]decimal.Decimal, len(v.Pagamentos)), troco: v.Troco}
	for _, pg := range v.Pagamentos {
		p.porForma[pg.Forma] = p.porForma[pg.Forma].Add(pg.Valor)
	}
	return p
}

// movimentarCaixa writes one cash movement per payment method; sinal -1
// writes the inverse entries of a cancellation.
func (s *vendaService) movimentarCaixa(ctx context.Context, tx *gorm.DB, v *model.Venda, pag pagamentos, tipo, desc string, sinal int64, usuarioID uuid.UUID) error {
	for _, forma := range model.FormasPagamento {
		if _, ok := pag.porForma[forma]; !ok {
			continue
		}
		valor := pag.liquidoCaixa(forma)
		if valor.IsZero() {
			continue
		}
		mov := &model.MovimentacaoCaixa{
			CaixaID:        v.CaixaID,
			UsuarioID:      usuarioID,
			Tipo:           tipo,
			FormaPagamento: forma,
			Valor:          valor.Mul(decimal.NewFromInt(sinal)),
			Descricao:      desc,
			ReferenciaID:   ptrUUID(v.ID),
		}
		if err := s.caixaRepo.CreateMovimentacao(ctx, tx, mov); err != nil {
			return err
		}
	}
	return nil
}

func formaValida(f string) bool {
	for _, forma := range model.FormasPagamento {
		if f == forma {
			return true
		}
	}
	return false
}

func vendaToResponse(v *model.Venda) *dto.VendaResponse {
	resp := &dto.VendaResponse{
		ID:                    v.ID.String(),
		Numero:                v.Numero,
		LojaID:                v.LojaID.String(),
		CaixaID:               v.CaixaID.String(),
		UsuarioID:             v.UsuarioID.String(),
		Subtotal:              v.Subtotal,
		DescontoItens:         v.DescontoItens,
		Desconto:              v.Desconto,
		Total:                 v.Total,
		Troco:                 v.Troco,
		Status:                v.Status,
		ClienteEmail:          v.ClienteEmail,
		MotivoCancelamento:    v.MotivoCancelamento,
		CanceladaEm:           timePtrStr(v.CanceladaEm),
		ComprovanteDisponivel: v.ComprovantePath != nil,
		Itens:                 make([]dto.ItemVendaResponse, len(v.Itens)),
		Pagamentos:            make([]dto.PagamentoResponse, len(v.Pagamentos)),
		CreatedAt:             v.CreatedAt.Format(time.RFC3339),
	}
	for i, it := range v.Itens {
		resp.Itens[i] = dto.ItemVendaResponse{
			VariacaoID:    it.VariacaoID.String(),
			ProdutoID:     it.ProdutoID.String(),
			Descricao:     it.Descricao,
			Quantidade:    it.Quantidade,
			PrecoUnitario: it.PrecoUnitario,
			Desconto:      it.Desconto,
			Subtotal:      it.Subtotal,
		}
	}
	for i, pg := range v.Pagamentos {
		resp.Pagamentos[i] = dto.PagamentoResponse{Forma: pg.Forma, Valor: pg.Valor}
	}
	return resp
}
