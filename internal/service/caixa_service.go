package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vlstore/internal/config"
	"vlstore/internal/dto"
	"vlstore/internal/model"
	"vlstore/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Closing classifications.
const (
	ClassNormal  = "normal"
	ClassAlerta  = "alerta"
	ClassCritico = "critico"
)

var cem = decimal.NewFromInt(100)

type CaixaService interface {
	Abrir(ctx context.Context, ator Ator, req dto.AbrirCaixaRequest) (*dto.CaixaResponse, error)
	RegistrarMovimentacao(ctx context.Context, ator Ator, caixaID uuid.UUID, req dto.MovimentacaoManualRequest) (*dto.MovimentacaoCaixaResponse, error)
	Fechar(ctx context.Context, ator Ator, caixaID uuid.UUID, req dto.FecharCaixaRequest) (*dto.FecharCaixaResponse, error)
	Relatorio(ctx context.Context, ator Ator, caixaID uuid.UUID) (*dto.RelatorioCaixaResponse, error)
	Ativo(ctx context.Context, ator Ator) (*dto.CaixaResponse, error)
	Historico(ctx context.Context, ator Ator, filter dto.CaixaHistoricoFilter) (*dto.Pagina[dto.CaixaResponse], error)
	ListarMovimentacoes(ctx context.Context, ator Ator, caixaID uuid.UUID) ([]dto.MovimentacaoCaixaResponse, error)
}

type caixaService struct {
	repo      repository.CaixaRepository
	lojaRepo  repository.LojaRepository
	vendaRepo repository.VendaRepository
	logs      LogService
	cfg       *config.Config
}

func NewCaixaService(
	repo repository.CaixaRepository,
	lojaRepo repository.LojaRepository,
	vendaRepo repository.VendaRepository,
	logs LogService,
	cfg *config.Config,
) CaixaService {
	return &caixaService{repo: repo, lojaRepo: lojaRepo, vendaRepo: vendaRepo, logs: logs, cfg: cfg}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *caixaService) Abrir(ctx context.Context, ator Ator, req dto.AbrirCaixaRequest) (*dto.CaixaResponse, error) {
	if req.ValorAbertura.IsNegative() {
		return nil, regra("valor de abertura não pode ser negativo")
	}
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

	// Guard: one open caixa per operator per store
	if _, err := s.repo.FindAberto(ctx, ator.UsuarioID, &lojaID); err == nil {
		return nil, conflito("já existe um caixa aberto para este usuário nesta loja")
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	caixa := &model.Caixa{
		LojaID:        lojaID,
		UsuarioID:     ator.UsuarioID,
		ValorAbertura: req.ValorAbertura.Round(2),
		Status:        model.CaixaAberto,
		AbertoEm:      time.Now(),
	}
	if err := s.repo.Create(ctx, caixa); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, conflito("já existe um caixa aberto para este usuário nesta loja")
		}
		return nil, err
	}

	s.logs.Registrar(ctx, ator, Entrada{
		Acao: AcaoAbrir, Entidade: EntCaixa, EntidadeID: ptrUUID(caixa.ID), LojaID: ptrUUID(lojaID),
		Detalhes: map[string]any{"valor_abertura": caixa.ValorAbertura},
	})
	return caixaToResponse(caixa), nil
}

// ── RegistrarMovimentacao ─────────────────────────────────────────────────────
// Suprimento / sangria manual, always cash. Movements are immutable.

func (s *caixaService) RegistrarMovimentacao(ctx context.Context, ator Ator, caixaID uuid.UUID, req dto.MovimentacaoManualRequest) (*dto.MovimentacaoCaixaResponse, error) {
	if !req.Valor.IsPositive() {
		return nil, regra("valor deve ser maior que zero")
	}
	if req.Tipo != model.MovSuprimento && req.Tipo != model.MovSangria {
		return nil, regra("tipo deve ser suprimento ou sangria")
	}
	caixa, err := s.find(ctx, caixaID)
	if err != nil {
		return nil, err
	}
	if !podeOperar(ator, caixa) {
		return nil, proibido("caixa pertence a outro operador")
	}

	valor := req.Valor.Round(2)
	mov := &model.MovimentacaoCaixa{
		CaixaID:        caixaID,
		UsuarioID:      ator.UsuarioID,
		Tipo:           req.Tipo,
		FormaPagamento: model.FormaDinheiro,
		Valor:          valor,
		Descricao:      req.Descricao,
	}
	if req.Tipo == model.MovSangria {
		mov.Valor = valor.Neg()
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		locked, err := s.repo.FindByIDForUpdate(ctx, tx, caixaID)
		if err != nil {
			return err
		}
		if locked.Status != model.CaixaAberto {
			return regra("caixa não está aberto")
		}
		if req.Tipo == model.MovSangria {
			totais, err := s.repo.Totais(ctx, tx, caixaID)
			if err != nil {
				return err
			}
			saldo := esperadoPorForma(locked.ValorAbertura, totais).Dinheiro
			if valor.GreaterThan(saldo) {
				// the operator counts blind: the expected cash stays hidden
				if !ator.Gerencia() {
					return regra("sangria maior que o saldo em dinheiro")
				}
				return regra(fmt.Sprintf("sangria maior que o saldo em dinheiro (%s)", saldo.StringFixed(2)))
			}
		}
		return s.repo.CreateMovimentacao(ctx, tx, mov)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.logs.Registrar(ctx, ator, Entrada{
		Acao: AcaoMovimentar, Entidade: EntCaixa, EntidadeID: ptrUUID(caixaID), LojaID: ptrUUID(caixa.LojaID),
		Detalhes: map[string]any{"tipo": mov.Tipo, "valor": mov.Valor, "descricao": mov.Descricao},
	})
	resp := movimentacaoCaixaToResponse(mov)
	return &resp, nil
}

// ── Fechar ────────────────────────────────────────────────────────────────────
// Blind count: expected values are computed only AFTER the declaration is
// received, under a row lock so no sale can land in between.

func (s *caixaService) Fechar(ctx context.Context, ator Ator, caixaID uuid.UUID, req dto.FecharCaixaRequest) (*dto.FecharCaixaResponse, error) {
	caixa, err := s.find(ctx, caixaID)
	if err != nil {
		return nil, err
	}
	if !podeOperar(ator, caixa) {
		return nil, proibido("caixa pertence a outro operador")
	}

	var fechamento Fechamento
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		locked, err := s.repo.FindByIDForUpdate(ctx, tx, caixaID)
		if err != nil {
			return err
		}
		if locked.Status != model.CaixaAberto {
			return regra("caixa já está fechado")
		}
		totais, err := s.repo.Totais(ctx, tx, caixaID)
		if err != nil {
			return err
		}

		fechamento = CalcularFechamento(
			esperadoPorForma(locked.ValorAbertura, totais),
			declarado(req.Declaracao),
			decimal.NewFromFloat(s.cfg.DiferencaAlertaPct),
			decimal.NewFromFloat(s.cfg.DiferencaCriticaPct),
		)
		if fechamento.Classificacao == ClassCritico && (req.Observacoes == nil || *req.Observacoes == "") {
			return regra("diferença crítica: observações são obrigatórias")
		}

		agora := time.Now()
		locked.ValorEsperado = &fechamento.Esperado.Total
		locked.ValorInformado = &fechamento.Declarado.Total
		locked.InformadoDinheiro = &fechamento.Declarado.Dinheiro
		locked.InformadoDebito = &fechamento.Declarado.Debito
		locked.InformadoCredito = &fechamento.Declarado.Credito
		locked.InformadoPix = &fechamento.Declarado.Pix
		locked.Diferenca = &fechamento.Diferenca
		locked.DiferencaPct = &fechamento.DiferencaPct
		locked.Classificacao = &fechamento.Classificacao
		locked.Observacoes = req.Observacoes
		locked.FechadoEm = &agora
		locked.Status = model.CaixaFechado
		caixa = locked

		if err := s.repo.Fechar(ctx, tx, locked); err != nil {
			if errors.Is(err, repository.ErrEstadoAlterado) {
				return regra("caixa já está fechado")
			}
			return err
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.logs.Registrar(ctx, ator, Entrada{
		Acao: AcaoFechar, Entidade: EntCaixa, EntidadeID: ptrUUID(caixaID), LojaID: ptrUUID(caixa.LojaID),
		Detalhes: map[string]any{
			"esperado":      fechamento.Esperado.Total,
			"declarado":     fechamento.Declarado.Total,
			"diferenca":     fechamento.Diferenca,
			"diferenca_pct": fechamento.DiferencaPct,
			"classificacao": fechamento.Classificacao,
		},
	})

	return &dto.FecharCaixaResponse{
		CaixaID:       caixaID.String(),
		Esperado:      fechamento.Esperado,
		Declarado:     fechamento.Declarado,
		Diferenca:     fechamento.Diferenca,
		DiferencaPct:  fechamento.DiferencaPct,
		Classificacao: fechamento.Classificacao,
		Observacoes:   req.Observacoes,
		FechadoEm:     caixa.FechadoEm.Format(time.RFC3339),
	}, nil
}

// ── Relatorio ─────────────────────────────────────────────────────────────────

func (s *caixaService) Relatorio(ctx context.Context, ator Ator, caixaID uuid.UUID) (*dto.RelatorioCaixaResponse, error) {
	caixa, err := s.findLeitura(ctx, ator, caixaID)
	if err != nil {
		return nil, err
	}
	totais, err := s.repo.Totais(ctx, nil, caixaID)
	if err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovimentacoes(ctx, caixaID)
	if err != nil {
		return nil, err
	}
	nVendas, err := s.vendaRepo.CountByCaixa(ctx, caixaID)
	if err != nil {
		return nil, err
	}

	rel := &dto.RelatorioCaixaResponse{
		Caixa:         *caixaToResponse(caixa),
		Esperado:      esperadoPorForma(caixa.ValorAbertura, totais),
		TotalVendas:   nVendas,
		Suprimentos:   decimal.Zero,
		Sangrias:      decimal.Zero,
		Movimentacoes: make([]dto.MovimentacaoCaixaResponse, len(movs)),
		Observacoes:   caixa.Observacoes,
		Diferenca:     caixa.Diferenca,
		DiferencaPct:  caixa.DiferencaPct,
	}
	for _, t := range totais {
		switch t.Tipo {
		case model.MovSuprimento:
			rel.Suprimentos = rel.Suprimentos.Add(t.Total)
		case model.MovSangria:
			rel.Sangrias = rel.Sangrias.Add(t.Total.Abs())
		}
	}
	for i := range movs {
		rel.Movimentacoes[i] = movimentacaoCaixaToResponse(&movs[i])
	}
	if caixa.Status == model.CaixaFechado && caixa.ValorInformado != nil {
		d := dto.ValoresPorForma{
			Dinheiro: decOrZero(caixa.InformadoDinheiro),
			Debito:   decOrZero(caixa.InformadoDebito),
			Credito:  decOrZero(caixa.InformadoCredito),
			Pix:      decOrZero(caixa.InformadoPix),
			Total:    *caixa.ValorInformado,
		}
		rel.Declarado = &d
	}
	return rel, nil
}

func (s *caixaService) ListarMovimentacoes(ctx context.Context, ator Ator, caixaID uuid.UUID) ([]dto.MovimentacaoCaixaResponse, error) {
	if _, err := s.findLeitura(ctx, ator, caixaID); err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovimentacoes(ctx, caixaID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.MovimentacaoCaixaResponse, len(movs))
	for i := range movs {
		resp[i] = movimentacaoCaixaToResponse(&movs[i])
	}
	return resp, nil
}

func (s *caixaService) Ativo(ctx context.Context, ator Ator) (*dto.CaixaResponse, error) {
	caixa, err := s.repo.FindAberto(ctx, ator.UsuarioID, ator.LojaID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, naoEncontrado("nenhum caixa aberto")
		}
		return nil, err
	}
	return caixaToResponse(caixa), nil
}

func (s *caixaService) Historico(ctx context.Context, ator Ator, filter dto.CaixaHistoricoFilter) (*dto.Pagina[dto.CaixaResponse], error) {
	loja, err := ator.escopoLoja(filter.LojaID)
	if err != nil {
		return nil, err
	}
	filter.LojaID = loja
	if !ator.Gerencia() {
		filter.UsuarioID = ator.UsuarioID.String()
	}
	filter.Normalizar()

	caixas, total, err := s.repo.Historico(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.CaixaResponse, len(caixas))
	for i := range caixas {
		data[i] = *caixaToResponse(&caixas[i])
	}
	p := dto.NovaPagina(data, total, filter.Page, filter.Limit)
	return &p, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *caixaService) find(ctx context.Context, id uuid.UUID) (*model.Caixa, error) {
	caixa, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, naoEncontrado("caixa não encontrado")
		}
		return nil, err
	}
	return caixa, nil
}

// findLeitura applies the read rules for reports: managers see any caixa of
// their store; operators only their own, and only once it is closed.
func (s *caixaService) findLeitura(ctx context.Context, ator Ator, id uuid.UUID) (*model.Caixa, error) {
	caixa, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ator.PodeAcessarLoja(caixa.LojaID) {
		return nil, proibido("caixa de outra loja")
	}
	if !ator.Gerencia() {
		if caixa.UsuarioID != ator.UsuarioID {
			return nil, proibido("caixa pertence a outro operador")
		}
		if caixa.Status != model.CaixaFechado {
			return nil, proibido("relatório disponível após o fechamento")
		}
	}
	return caixa, nil
}

// podeOperar: the owner, or a manager of the caixa's store.
func podeOperar(ator Ator, c *model.Caixa) bool {
	if c.UsuarioID == ator.UsuarioID {
		return true
	}
	return ator.Gerencia() && ator.PodeAcessarLoja(c.LojaID)
}

// Fechamento is the result of reconciling a blind declaration.
type Fechamento struct {
	Esperado      dto.ValoresPorForma
	Declarado     dto.ValoresPorForma
	Diferenca     decimal.Decimal
	DiferencaPct  decimal.Decimal
	Classificacao string
}

// maxDiferencaPct is the largest magnitude caixas.diferenca_pct
// (decimal(12,2)) can hold.
var maxDiferencaPct = decimal.RequireFromString("9999999999.99")

// CalcularFechamento compares declared against expected totals.
// diferenca_pct is 0 when both are zero and 100 when only expected is zero.
// It is clamped to ±maxDiferencaPct, which is critical either way.
func CalcularFechamento(esperado, declarado dto.ValoresPorForma, alertaPct, criticaPct decimal.Decimal) Fechamento {
	diferenca := declarado.Total.Sub(esperado.Total)
	var pct decimal.Decimal
	switch {
	case !esperado.Total.IsZero():
		pct = diferenca.Div(esperado.Total).Mul(cem).Round(2)
	case diferenca.IsZero():
		pct = decimal.Zero
	default:
		pct = cem
	}
	if pct.GreaterThan(maxDiferencaPct) {
		pct = maxDiferencaPct
	} else if pct.LessThan(maxDiferencaPct.Neg()) {
		pct = maxDiferencaPct.Neg()
	}
	return Fechamento{
		Esperado:      esperado,
		Declarado:     declarado,
		Diferenca:     diferenca,
		DiferencaPct:  pct,
		Classificacao: classificarDiferenca(pct, alertaPct, criticaPct),
	}
}

// classificarDiferenca returns "normal" | "alerta" | "critico".
func classificarDiferenca(pct, alertaPct, criticaPct decimal.Decimal) string {
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(alertaPct):
		return ClassNormal
	case abs.LessThanOrEqual(criticaPct):
		return ClassAlerta
	default:
		return ClassCritico
	}
}

// esperadoPorForma sums the ledger per payment method; cash also carries the
// opening float.
func esperadoPorForma(abertura decimal.Decimal, totais []repository.TotalMovimentacao) dto.ValoresPorForma {
	porForma := make(map[string]decimal.Decimal, len(model.FormasPagamento))
	for _, t := range totais {
		porForma[t.FormaPagamento] = porForma[t.FormaPagamento].Add(t.Total)
	}
	v := dto.ValoresPorForma{
		Dinheiro: abertura.Add(porForma[model.FormaDinheiro]),
		Debito:   porForma[model.FormaDebito],
		Credito:  porForma[model.FormaCredito],
		Pix:      porForma[model.FormaPix],
	}
	v.Total = v.Dinheiro.Add(v.Debito).Add(v.Credito).Add(v.Pix)
	return v
}

func declarado(d dto.DeclaracaoRequest) dto.ValoresPorForma {
	v := dto.ValoresPorForma{
		Dinheiro: d.Dinheiro.Round(2),
		Debito:   d.Debito.Round(2),
		Credito:  d.Credito.Round(2),
		Pix:      d.Pix.Round(2),
	}
	v.Total = v.Dinheiro.Add(v.Debito).Add(v.Credito).Add(v.Pix)
	return v
}

func decOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func caixaToResponse(c *model.Caixa) *dto.CaixaResponse {
	return &dto.CaixaResponse{
		ID:            c.ID.String(),
		LojaID:        c.LojaID.String(),
		UsuarioID:     c.UsuarioID.String(),
		ValorAbertura: c.ValorAbertura,
		Status:        c.Status,
		Classificacao: c.Classificacao,
		AbertoEm:      c.AbertoEm.Format(time.RFC3339),
		FechadoEm:     timePtrStr(c.FechadoEm),
	}
}

func movimentacaoCaixaToResponse(m *model.MovimentacaoCaixa) dto.MovimentacaoCaixaResponse {
	return dto.MovimentacaoCaixaResponse{
		ID:             m.ID.String(),
		Tipo:           m.Tipo,
		FormaPagamento: m.FormaPagamento,
		Valor:          m.Valor,
		Descricao:      m.Descricao,
		ReferenciaID:   uuidPtrStr(m.ReferenciaID),
		UsuarioID:      m.UsuarioID.String(),
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}
