package service_test

import (
	"context"
	"testing"

	"vlstore/internal/dto"
	"vlstore/internal/model"
	"vlstore/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vendaFixture struct {
	e       *env
	loja    uuid.UUID
	op      service.Ator
	ger     service.Ator
	caixaID uuid.UUID
	v       *model.Variacao
}

// newVendaFixture: one store, an open caixa and a variation priced 35
// (base 30) with 10 units.
func newVendaFixture(t *testing.T) *vendaFixture {
	t.Helper()
	e := newEnv(t)
	loja := e.seedLoja(t)
	f := &vendaFixture{
		e:    e,
		loja: loja,
		op:   e.seedUsuario(t, model.RoleOperador, &loja),
		ger:  e.seedUsuario(t, model.RoleGerente, &loja),
	}
	f.caixaID = abrirCaixa(t, e, f.op, "100")
	f.v = e.seedVariacao(t, loja, dec("30"), decPtr("35"), 10)
	return f
}

func (f *vendaFixture) req(qtd int, pags ...dto.PagamentoRequest) dto.RegistrarVendaRequest {
	return dto.RegistrarVendaRequest{
		CaixaID:    f.caixaID.String(),
		Itens:      []dto.ItemVendaRequest{{VariacaoID: f.v.ID.String(), Quantidade: qtd}},
		Pagamentos: pags,
	}
}

func totaisPorForma(movs []model.MovimentacaoCaixa, tipo string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, m := range movs {
		if m.Tipo == tipo {
			out[m.FormaPagamento] = out[m.FormaPagamento].Add(m.Valor)
		}
	}
	return out
}

// ── Registrar ─────────────────────────────────────────────────────────────────

func TestRegistrarVenda_Success(t *testing.T) {
	f := newVendaFixture(t)
	email := "cliente@example.com"
	req := f.req(2, pag(model.FormaDinheiro, "100"))
	req.ClienteEmail = &email

	resp, err := f.e.vendas.Registrar(context.Background(), f.op, req)
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.Numero)
	assert.Equal(t, model.VendaConcluida, resp.Status)
	assertDec(t, "70", resp.Subtotal)
	assertDec(t, "70", resp.Total)
	assertDec(t, "30", resp.Troco)
	require.Len(t, resp.Itens, 1)
	assert.Equal(t, "Camiseta - M", resp.Itens[0].Descricao)
	assertDec(t, "35", resp.Itens[0].PrecoUnitario)

	// stock decremented and recorded
	assert.Equal(t, 8, f.e.estoqueDe(t, f.v.ID))
	require.Len(t, f.e.st.movEstoque, 1)
	mov := f.e.st.movEstoque[0]
	assert.Equal(t, model.EstoqueVenda, mov.Tipo)
	assert.Equal(t, -2, mov.Quantidade)
	assert.Equal(t, 10, mov.EstoqueAnterior)
	assert.Equal(t, 8, mov.EstoqueNovo)

	// cash ledger keeps only what stayed in the drawer
	movs := f.e.movsCaixa(f.caixaID)
	require.Len(t, movs, 1)
	assert.Equal(t, model.MovVenda, movs[0].Tipo)
	assertDec(t, "70", movs[0].Valor)

	// receipt job and audit
	require.Len(t, f.e.fila.vendas, 1)
	assert.Equal(t, resp.ID, f.e.fila.vendas[0].String())
	assert.Equal(t, &email, f.e.fila.emails[0])
	var acoes []string
	for _, l := range f.e.st.logs {
		acoes = append(acoes, l.Acao)
	}
	assert.Contains(t, acoes, service.AcaoRegistrar)
}

func TestRegistrarVenda_NumeracaoSequencial(t *testing.T) {
	f := newVendaFixture(t)
	a := vender(t, f.e, f.op, f.caixaID, f.v, 1, pag(model.FormaPix, "35"))
	b := vender(t, f.e, f.op, f.caixaID, f.v, 1, pag(model.FormaPix, "35"))
	assert.Equal(t, a.Numero+1, b.Numero)
}

func TestRegistrarVenda_PrecoHerdadoDoProduto(t *testing.T) {
	f := newVendaFixture(t)
	herdado := f.e.seedVariacao(t, f.loja, dec("49.90"), nil, 3)

	resp := vender(t, f.e, f.op, f.caixaID, herdado, 2, pag(model.FormaCredito, "99.80"))
	assertDec(t, "49.90", resp.Itens[0].PrecoUnitario)
	assertDec(t, "99.80", resp.Total)
	assertDec(t, "0", resp.Troco)
}

func TestRegistrarVenda_PagamentoMisto(t *testing.T) {
	f := newVendaFixture(t)
	// total 70: 40 no débito + 50 em dinheiro → troco 20
	resp := vender(t, f.e, f.op, f.caixaID, f.v, 2,
		pag(model.FormaDebito, "40"),
		pag(model.FormaDinheiro, "50"),
	)
	assertDec(t, "20", resp.Troco)
	require.Len(t, resp.Pagamentos, 2)

	porForma := totaisPorForma(f.e.movsCaixa(f.caixaID), model.MovVenda)
	assertDec(t, "30", porForma[model.FormaDinheiro])
	assertDec(t, "40", porForma[model.FormaDebito])
}

func TestRegistrarVenda_PagamentosDaMesmaFormaSaoSomados(t *testing.T) {
	f := newVendaFixture(t)
	resp := vender(t, f.e, f.op, f.caixaID, f.v, 1,
		pag(model.FormaPix, "20"),
		pag(model.FormaPix, "15"),
	)
	require.Len(t, resp.Pagamentos, 1)
	assertDec(t, "35", resp.Pagamentos[0].Valor)
}

func TestRegistrarVenda_Descontos(t *testing.T) {
	f := newVendaFixture(t)
	req := f.req(2, pag(model.FormaDinheiro, "60"))
	req.Itens[0].Desconto = dec("5")
	req.Desconto = dec("5.50")

	resp, err := f.e.vendas.Registrar(context.Background(), f.op, req)
	require.NoError(t, err)
	assertDec(t, "65", resp.Subtotal)
	assertDec(t, "5", resp.DescontoItens)
	assertDec(t, "5.50", resp.Desconto)
	assertDec(t, "59.50", resp.Total)
	assertDec(t, "0.50", resp.Troco)
}

func TestRegistrarVenda_Rejeicoes(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T, f *vendaFixture, r *dto.RegistrarVendaRequest)
		wantErr error
	}{
		{
			name:    "pagamento insuficiente",
			mutate:  func(_ *testing.T, _ *vendaFixture, r *dto.RegistrarVendaRequest) { r.Pagamentos = []dto.PagamentoRequest{pag(model.FormaDinheiro, "69.99")} },
			wantErr: service.ErrRegraNegocio,
		},
		{
			name:    "troco fora do dinheiro",
			mutate:  func(_ *testing.T, _ *vendaFixture, r *dto.RegistrarVendaRequest) { r.Pagamentos = []dto.PagamentoRequest{pag(model.FormaPix, "100")} },
			wantErr: service.ErrRegraNegocio,
		},
		{
			name: "cartão excede total mesmo com dinheiro",
			mutate: func(_ *testing.T, _ *vendaFixture, r *dto.RegistrarVendaRequest) {
				r.Pagamentos = []dto.PagamentoRequest{pag(model.FormaCredito, "80"), pag(model.FormaDinheiro, "10")}
			},
			wantErr: service.ErrRegraNegocio,
		},
		{
			name:    "forma inválida",
			mutate:  func(_ *testing.T, _ *vendaFixture, r *dto.RegistrarVendaRequest) { r.Pagamentos = []dto.PagamentoRequest{pag("cheque", "70")} },
			wantErr: service.ErrRegraNegocio,
		},
		{
			name:    "desconto do item maior que o item",
			mutate:  func(_ *testing.T, _ *vendaFixture, r *dto.RegistrarVendaRequest) { r.Itens[0].Desconto = dec("70.01") },
			wantErr: service.ErrRegraNegocio,
		},
		{
			name:    "desconto da venda maior que o subtotal",
			mutate:  func(_ *testing.T, _ *vendaFixture, r *dto.RegistrarVendaRequest) { r.Desconto = dec("71") },
			wantErr: service.ErrRegraNegocio,
		},
		{
			name:    "sem itens",
			mutate:  func(_ *testing.T, _ *vendaFixture, r *dto.RegistrarVendaRequest) { r.Itens = nil },
			wantErr: service.ErrRegraNegocio,
		},
		{
			name:    "variação inexistente",
			mutate:  func(_ *testing.T, _ *vendaFixture, r *dto.RegistrarVendaRequest) { r.Itens[0].VariacaoID = uuid.NewString() },
			wantErr: service.ErrNaoEncontrado,
		},
		{
			name:    "caixa inexistente",
			mutate:  func(_ *testing.T, _ *vendaFixture, r *dto.RegistrarVendaRequest) { r.CaixaID = uuid.NewString() },
			wantErr: service.ErrNaoEncontrado,
		},
		{
			name:    "estoque insuficiente",
			mutate:  func(_ *testing.T, _ *vendaFixture, r *dto.RegistrarVendaRequest) { r.Itens[0].Quantidade = 11; r.Pagamentos[0].Valor = dec("385") },
			wantErr: service.ErrConflito,
		},
		{
			name: "variação inativa",
			mutate: func(_ *testing.T, f *vendaFixture, _ *dto.RegistrarVendaRequest) {
				_ = variacaoStub{f.e.st}.SetAtivo(context.Background(), f.v.ID, false)
			},
			wantErr: service.ErrRegraNegocio,
		},
		{
			name: "variação de outra loja",
			mutate: func(t *testing.T, f *vendaFixture, r *dto.RegistrarVendaRequest) {
				outra := f.e.seedLoja(t)
				v := f.e.seedVariacao(t, outra, dec("10"), nil, 5)
				r.Itens[0].VariacaoID = v.ID.String()
			},
			wantErr: service.ErrRegraNegocio,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newVendaFixture(t)
			req := f.req(2, pag(model.FormaDinheiro, "100"))
			tt.mutate(t, f, &req)

			_, err := f.e.vendas.Registrar(context.Background(), f.op, req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 10, f.e.estoqueDe(t, f.v.ID))
			assert.Empty(t, f.e.movsCaixa(f.caixaID))
		})
	}
}

func TestRegistrarVenda_CaixaDeOutroOperador(t *testing.T) {
	f := newVendaFixture(t)
	outro := f.e.seedUsuario(t, model.RoleOperador, &f.loja)

	_, err := f.e.vendas.Registrar(context.Background(), outro, f.req(1, pag(model.FormaDinheiro, "35")))
	assert.ErrorIs(t, err, service.ErrProibido)
}

func TestRegistrarVenda_FalhaAoEnfileirarNaoDesfazVenda(t *testing.T) {
	f := newVendaFixture(t)
	f.e.fila.err = errBoom

	resp, err := f.e.vendas.Registrar(context.Background(), f.op, f.req(1, pag(model.FormaDinheiro, "35")))
	require.NoError(t, err)
	assert.Equal(t, model.VendaConcluida, resp.Status)
	assert.Equal(t, 9, f.e.estoqueDe(t, f.v.ID))
}

func TestRegistrarVenda_InvalidaCacheDePreco(t *testing.T) {
	f := newVendaFixture(t)
	barcode := *f.v.Produto.CodigoBarras

	_, err := f.e.produtos.ConsultarPreco(context.Background(), barcode, nil)
	require.NoError(t, err)
	require.Contains(t, f.e.cache.itens, "preco:"+barcode)

	vender(t, f.e, f.op, f.caixaID, f.v, 1, pag(model.FormaDinheiro, "35"))
	assert.NotContains(t, f.e.cache.itens, "preco:"+barcode)
}

// ── Cancelar ──────────────────────────────────────────────────────────────────

func TestCancelarVenda_EstornaEstoqueECaixa(t *testing.T) {
	f := newVendaFixture(t)
	venda := vender(t, f.e, f.op, f.caixaID, f.v, 2,
		pag(model.FormaDebito, "20"),
		pag(model.FormaDinheiro, "60"),
	)
	require.Equal(t, 8, f.e.estoqueDe(t, f.v.ID))

	resp, err := f.e.vendas.Cancelar(context.Background(), f.ger, uuid.MustParse(venda.ID), "cliente desistiu")
	require.NoError(t, err)
	assert.Equal(t, model.VendaCancelada, resp.Status)
	require.NotNil(t, resp.MotivoCancelamento)
	assert.Equal(t, "cliente desistiu", *resp.MotivoCancelamento)
	assert.NotNil(t, resp.CanceladaEm)

	assert.Equal(t, 10, f.e.estoqueDe(t, f.v.ID))
	last := f.e.st.movEstoque[len(f.e.st.movEstoque)-1]
	assert.Equal(t, model.EstoqueCancelamento, last.Tipo)
	assert.Equal(t, 2, last.Quantidade)

	movs := f.e.movsCaixa(f.caixaID)
	vendas := totaisPorForma(movs, model.MovVenda)
	cancel := totaisPorForma(movs, model.MovCancelamento)
	for forma, v := range vendas {
		assertDec(t, v.Neg().String(), cancel[forma], forma)
	}
	assertDec(t, "-50", cancel[model.FormaDinheiro])

	// closing now expects only the opening float
	fech, err := f.e.caixas.Fechar(context.Background(), f.op, f.caixaID, dto.FecharCaixaRequest{
		Declaracao: dto.DeclaracaoRequest{Dinheiro: dec("100")},
	})
	require.NoError(t, err)
	assertDec(t, "100", fech.Esperado.Total)
	assert.Equal(t, service.ClassNormal, fech.Classificacao)
}

func TestCancelarVenda_InvalidaCacheDePreco(t *testing.T) {
	f := newVendaFixture(t)
	barcode := *f.v.Produto.CodigoBarras
	// sells the whole stock so the cached lookup reports it unavailable
	venda := vender(t, f.e, f.op, f.caixaID, f.v, 10, pag(model.FormaDinheiro, "350"))

	consulta, err := f.e.produtos.ConsultarPreco(context.Background(), barcode, nil)
	require.NoError(t, err)
	require.Contains(t, f.e.cache.itens, "preco:"+barcode)
	require.False(t, consulta.Variacoes[0].Disponivel)
	antes := len(f.e.cache.invalidadas)

	_, err = f.e.vendas.Cancelar(context.Background(), f.ger, uuid.MustParse(venda.ID), "cliente desistiu")
	require.NoError(t, err)
	assert.Greater(t, len(f.e.cache.invalidadas), antes)
	assert.NotContains(t, f.e.cache.itens, "preco:"+barcode)

	consulta, err = f.e.produtos.ConsultarPreco(context.Background(), barcode, nil)
	require.NoError(t, err)
	assert.True(t, consulta.Variacoes[0].Disponivel)
}

func TestCancelarVenda_OperadorProibido(t *testing.T) {
	f := newVendaFixture(t)
	venda := vender(t, f.e, f.op, f.caixaID, f.v, 1, pag(model.FormaPix, "35"))

	_, err := f.e.vendas.Cancelar(context.Background(), f.op, uuid.MustParse(venda.ID), "engano")
	assert.ErrorIs(t, err, service.ErrProibido)
	assert.Equal(t, 9, f.e.estoqueDe(t, f.v.ID))
}

func TestCancelarVenda_DuasVezes(t *testing.T) {
	f := newVendaFixture(t)
	venda := vender(t, f.e, f.op, f.caixaID, f.v, 1, pag(model.FormaPix, "35"))
	id := uuid.MustParse(venda.ID)

	_, err := f.e.vendas.Cancelar(context.Background(), f.ger, id, "engano")
	require.NoError(t, err)
	_, err = f.e.vendas.Cancelar(context.Background(), f.ger, id, "engano")
	assert.ErrorIs(t, err, service.ErrRegraNegocio)
	assert.Equal(t, 10, f.e.estoqueDe(t, f.v.ID))
}

func TestCancelarVenda_CaixaFechado(t *testing.T) {
	f := newVendaFixture(t)
	venda := vender(t, f.e, f.op, f.caixaID, f.v, 1, pag(model.FormaPix, "35"))
	_, err := f.e.caixas.Fechar(context.Background(), f.op, f.caixaID, dto.FecharCaixaRequest{
		Declaracao: dto.DeclaracaoRequest{Dinheiro: dec("100"), Pix: dec("35")},
	})
	require.NoError(t, err)

	_, err = f.e.vendas.Cancelar(context.Background(), f.ger, uuid.MustParse(venda.ID), "tarde demais")
	assert.ErrorIs(t, err, service.ErrRegraNegocio)
	assert.Equal(t, 9, f.e.estoqueDe(t, f.v.ID))
}

func TestCancelarVenda_GerenteDeOutraLoja(t *testing.T) {
	f := newVendaFixture(t)
	venda := vender(t, f.e, f.op, f.caixaID, f.v, 1, pag(model.FormaPix, "35"))
	outra := f.e.seedLoja(t)
	ger := f.e.seedUsuario(t, model.RoleGerente, &outra)

	_, err := f.e.vendas.Cancelar(context.Background(), ger, uuid.MustParse(venda.ID), "engano")
	assert.ErrorIs(t, err, service.ErrProibido)
}

// ── Consulta ──────────────────────────────────────────────────────────────────

func TestListarVendas_EscopoDaLoja(t *testing.T) {
	f := newVendaFixture(t)
	vender(t, f.e, f.op, f.caixaID, f.v, 1, pag(model.FormaPix, "35"))
	vender(t, f.e, f.op, f.caixaID, f.v, 1, pag(model.FormaPix, "35"))

	pagina, err := f.e.vendas.Listar(context.Background(), f.op, dto.VendaFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), pagina.Total)
	assert.Equal(t, 1, pagina.Page)

	_, err = f.e.vendas.Listar(context.Background(), f.op, dto.VendaFilter{LojaID: uuid.NewString()})
	assert.ErrorIs(t, err, service.ErrProibido)
}

func TestComprovante_GeraUmaVez(t *testing.T) {
	f := newVendaFixture(t)
	venda := vender(t, f.e, f.op, f.caixaID, f.v, 1, pag(model.FormaPix, "35"))
	id := uuid.MustParse(venda.ID)

	path, err := f.e.vendas.Comprovante(context.Background(), f.op, id)
	require.NoError(t, err)
	assert.FileExists(t, path)

	again, err := f.e.vendas.Comprovante(context.Background(), f.op, id)
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, 1, f.e.gerador.chamadas)

	obtida, err := f.e.vendas.Obter(context.Background(), f.op, id)
	require.NoError(t, err)
	assert.True(t, obtida.ComprovanteDisponivel)
}
