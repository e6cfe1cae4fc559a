package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"vlstore/internal/config"
	"vlstore/internal/dto"
	"vlstore/internal/model"
	"vlstore/internal/repository"
	"vlstore/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ── In-memory store shared by every repository stub ──────────────────────────

type store struct {
	mu           sync.Mutex
	lojas        map[uuid.UUID]*model.Loja
	usuarios     map[uuid.UUID]*model.Usuario
	funcionarios map[uuid.UUID]*model.Funcionario
	produtos     map[uuid.UUID]*model.Produto
	variacoes    map[uuid.UUID]*model.Variacao
	movEstoque   []model.MovimentacaoEstoque
	caixas       map[uuid.UUID]*model.Caixa
	movCaixa     []model.MovimentacaoCaixa
	vendas       map[uuid.UUID]*model.Venda
	logs         []model.Log
	numero       int64
	logErr       error
}

func newStore() *store {
	return &store{
		lojas:        make(map[uuid.UUID]*model.Loja),
		usuarios:     make(map[uuid.UUID]*model.Usuario),
		funcionarios: make(map[uuid.UUID]*model.Funcionario),
		produtos:     make(map[uuid.UUID]*model.Produto),
		variacoes:    make(map[uuid.UUID]*model.Variacao),
		caixas:       make(map[uuid.UUID]*model.Caixa),
		vendas:       make(map[uuid.UUID]*model.Venda),
	}
}

func paginar[T any](all []T, p dto.Paginacao) []T {
	start := p.Offset()
	if start >= len(all) {
		return nil
	}
	end := start + p.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// ── Loja ─────────────────────────────────────────────────────────────────────

type lojaStub struct{ *store }

func (r lojaStub) Create(_ context.Context, l *model.Loja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.lojas {
		if e.CNPJ == l.CNPJ {
			return gorm.ErrDuplicatedKey
		}
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = time.Now()
	c := *l
	r.lojas[l.ID] = &c
	return nil
}

func (r lojaStub) FindByID(_ context.Context, id uuid.UUID) (*model.Loja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lojas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *l
	return &c, nil
}

func (r lojaStub) FindByCNPJ(_ context.Context, cnpj string) (*model.Loja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lojas {
		if l.CNPJ == cnpj {
			c := *l
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r lojaStub) List(_ context.Context, incluirInativas bool) ([]model.Loja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Loja
	for _, l := range r.lojas {
		if l.Ativo || incluirInativas {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nome < out[j].Nome })
	return out, nil
}

func (r lojaStub) Update(_ context.Context, l *model.Loja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *l
	r.lojas[l.ID] = &c
	return nil
}

func (r lojaStub) SetAtivo(_ context.Context, id uuid.UUID, ativo bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.lojas[id]; ok {
		l.Ativo = ativo
	}
	return nil
}

// ── Usuario ──────────────────────────────────────────────────────────────────

type usuarioStub struct{ *store }

func (r usuarioStub) Create(_ context.Context, u *model.Usuario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	c := *u
	r.usuarios[u.ID] = &c
	return nil
}

func (r usuarioStub) FindByLogin(_ context.Context, login string) (*model.Usuario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.usuarios {
		if u.Username == login || (u.Email != nil && *u.Email == login) {
			c := *u
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r usuarioStub) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usuarios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *u
	return &c, nil
}

func (r usuarioStub) ExistsUsername(_ context.Context, username string, exceto *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.usuarios {
		if u.Username == username && (exceto == nil || u.ID != *exceto) {
			return true, nil
		}
	}
	return false, nil
}

func (r usuarioStub) ExistsEmail(_ context.Context, email string, exceto *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.usuarios {
		if u.Email != nil && *u.Email == email && (exceto == nil || u.ID != *exceto) {
			return true, nil
		}
	}
	return false, nil
}

func (r usuarioStub) List(_ context.Context, f dto.UsuarioFilter) ([]model.Usuario, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Usuario
	for _, u := range r.usuarios {
		if !u.Ativo && !f.IncluirInativos {
			continue
		}
		if f.LojaID != "" && (u.LojaID == nil || u.LojaID.String() != f.LojaID) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return paginar(out, f.Paginacao), int64(len(out)), nil
}

func (r usuarioStub) Update(_ context.Context, u *model.Usuario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *u
	r.usuarios[u.ID] = &c
	return nil
}

func (r usuarioStub) SetAtivo(_ context.Context, id uuid.UUID, ativo bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.usuarios[id]; ok {
		u.Ativo = ativo
	}
	return nil
}

// ── Funcionario ──────────────────────────────────────────────────────────────

type funcionarioStub struct{ *store }

func (r funcionarioStub) Create(_ context.Context, f *model.Funcionario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.CreatedAt = time.Now()
	c := *f
	r.funcionarios[f.ID] = &c
	return nil
}

func (r funcionarioStub) FindByID(_ context.Context, id uuid.UUID) (*model.Funcionario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.funcionarios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *f
	return &c, nil
}

func (r funcionarioStub) FindByCPF(_ context.Context, cpf string) (*model.Funcionario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.funcionarios {
		if f.CPF == cpf {
			c := *f
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r funcionarioStub) FindByUsuarioID(_ context.Context, usuarioID uuid.UUID) (*model.Funcionario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.funcionarios {
		if f.UsuarioID != nil && *f.UsuarioID == usuarioID {
			c := *f
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r funcionarioStub) List(_ context.Context, filter dto.FuncionarioFilter) ([]model.Funcionario, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Funcionario
	for _, f := range r.funcionarios {
		if filter.LojaID != "" && f.LojaID.String() != filter.LojaID {
			continue
		}
		if !f.Ativo && !filter.IncluirInativos {
			continue
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nome < out[j].Nome })
	return paginar(out, filter.Paginacao), int64(len(out)), nil
}

func (r funcionarioStub) Update(_ context.Context, f *model.Funcionario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *f
	r.funcionarios[f.ID] = &c
	return nil
}

func (r funcionarioStub) SetAtivo(_ context.Context, id uuid.UUID, ativo bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.funcionarios[id]; ok {
		f.Ativo = ativo
	}
	return nil
}

// ── Produto / Variacao ───────────────────────────────────────────────────────

type produtoStub struct{ *store }

// montar returns a copy of p with its variations attached; caller holds mu.
func (s *store) montar(p *model.Produto, soAtivas bool) *model.Produto {
	c := *p
	c.Variacoes = nil
	for _, v := range s.variacoes {
		if v.ProdutoID == p.ID && (!soAtivas || v.Ativo) {
			vc := *v
			vc.Produto = nil
			c.Variacoes = append(c.Variacoes, vc)
		}
	}
	sort.Slice(c.Variacoes, func(i, j int) bool { return c.Variacoes[i].Nome < c.Variacoes[j].Nome })
	return &c
}

func (r produtoStub) Create(_ context.Context, _ *gorm.DB, p *model.Produto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range p.Variacoes {
		for _, e := range r.variacoes {
			if e.SKU == v.SKU {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	for i := range p.Variacoes {
		v := &p.Variacoes[i]
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.ProdutoID = p.ID
		vc := *v
		r.variacoes[v.ID] = &vc
	}
	c := *p
	c.Variacoes = nil
	r.produtos[p.ID] = &c
	return nil
}

func (r produtoStub) FindByID(_ context.Context, id uuid.UUID) (*model.Produto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.produtos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.montar(p, false), nil
}

func (r produtoStub) FindByBarcode(_ context.Context, lojaID *uuid.UUID, barcode string) (*model.Produto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.produtos {
		if p.CodigoBarras != nil && *p.CodigoBarras == barcode && p.Ativo && (lojaID == nil || p.LojaID == *lojaID) {
			return r.montar(p, true), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r produtoStub) ExistsBarcode(_ context.Context, lojaID uuid.UUID, barcode string, exceto *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.produtos {
		if p.LojaID == lojaID && p.CodigoBarras != nil && *p.CodigoBarras == barcode && (exceto == nil || p.ID != *exceto) {
			return true, nil
		}
	}
	return false, nil
}

func (r produtoStub) List(_ context.Context, f dto.ProdutoFilter) ([]model.Produto, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Produto
	for _, p := range r.produtos {
		if f.LojaID != "" && p.LojaID.String() != f.LojaID {
			continue
		}
		if f.Ativo != "all" && p.Ativo == (f.Ativo == "false") {
			continue
		}
		if f.Categoria != "" && p.Categoria != f.Categoria {
			continue
		}
		out = append(out, *r.montar(p, false))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nome < out[j].Nome })
	return paginar(out, f.Paginacao), int64(len(out)), nil
}

func (r produtoStub) Update(_ context.Context, p *model.Produto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *p
	c.Variacoes = nil
	r.produtos[p.ID] = &c
	return nil
}

func (r produtoStub) SetAtivo(_ context.Context, id uuid.UUID, ativo bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.produtos[id]; ok {
		p.Ativo = ativo
	}
	return nil
}

type variacaoStub struct{ *store }

func (r variacaoStub) DB() *gorm.DB { return nil }

// comProduto returns a copy of v with its parent attached; caller holds mu.
func (s *store) comProduto(v *model.Variacao) *model.Variacao {
	c := *v
	if p, ok := s.produtos[v.ProdutoID]; ok {
		pc := *p
		pc.Variacoes = nil
		c.Produto = &pc
	}
	return &c
}

func (r variacaoStub) Create(_ context.Context, _ *gorm.DB, v *model.Variacao) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	c := *v
	r.variacoes[v.ID] = &c
	return nil
}

func (r variacaoStub) FindByID(_ context.Context, id uuid.UUID) (*model.Variacao, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variacoes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.comProduto(v), nil
}

func (r variacaoStub) FindByBarcode(_ context.Context, barcode string) (*model.Variacao, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.variacoes {
		if v.CodigoBarras != nil && *v.CodigoBarras == barcode && v.Ativo {
			return r.comProduto(v), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r variacaoStub) ExistsSKU(_ context.Context, sku string, exceto *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.variacoes {
		if v.SKU == sku && (exceto == nil || v.ID != *exceto) {
			return true, nil
		}
	}
	return false, nil
}

func (r variacaoStub) Update(_ context.Context, v *model.Variacao) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *v
	c.Produto = nil
	r.variacoes[v.ID] = &c
	return nil
}

func (r variacaoStub) SetAtivo(_ context.Context, id uuid.UUID, ativo bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.variacoes[id]; ok {
		v.Ativo = ativo
	}
	return nil
}

func (r variacaoStub) ListAlertas(_ context.Context, lojaID *uuid.UUID) ([]model.Variacao, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Variacao
	for _, v := range r.variacoes {
		c := r.comProduto(v)
		if !v.Ativo || v.Estoque > v.EstoqueMinimo || c.Produto == nil || !c.Produto.Ativo {
			continue
		}
		if lojaID != nil && c.Produto.LojaID != *lojaID {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Estoque < out[j].Estoque })
	return out, nil
}

func (r variacaoStub) AjustarEstoqueTx(_ context.Context, _ *gorm.DB, id uuid.UUID, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variacoes[id]
	if !ok || v.Estoque+delta < 0 {
		return 0, repository.ErrEstoqueInsuficiente
	}
	v.Estoque += delta
	return v.Estoque, nil
}

type movEstoqueStub struct{ *store }

func (r movEstoqueStub) Create(_ context.Context, _ *gorm.DB, m *model.MovimentacaoEstoque) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movEstoque = append(r.movEstoque, *m)
	return nil
}

func (r movEstoqueStub) List(_ context.Context, f dto.MovimentacaoEstoqueFilter) ([]model.MovimentacaoEstoque, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimentacaoEstoque
	for _, m := range r.movEstoque {
		if f.LojaID != "" && m.LojaID.String() != f.LojaID {
			continue
		}
		if f.VariacaoID != "" && m.VariacaoID.String() != f.VariacaoID {
			continue
		}
		if f.Tipo != "" && m.Tipo != f.Tipo {
			continue
		}
		out = append(out, m)
	}
	return paginar(out, f.Paginacao), int64(len(out)), nil
}

// ── Caixa ────────────────────────────────────────────────────────────────────

type caixaStub struct{ *store }

func (r caixaStub) DB() *gorm.DB { return nil }

func (r caixaStub) Create(_ context.Context, c *model.Caixa) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cc := *c
	r.caixas[c.ID] = &cc
	return nil
}

func (r caixaStub) FindByID(_ context.Context, id uuid.UUID) (*model.Caixa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.caixas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cc := *c
	return &cc, nil
}

func (r caixaStub) FindByIDForUpdate(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Caixa, error) {
	return r.FindByID(ctx, id)
}

func (r caixaStub) FindAberto(_ context.Context, usuarioID uuid.UUID, lojaID *uuid.UUID) (*model.Caixa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.caixas {
		if c.UsuarioID == usuarioID && c.Status == model.CaixaAberto && (lojaID == nil || c.LojaID == *lojaID) {
			cc := *c
			return &cc, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r caixaStub) Fechar(_ context.Context, _ *gorm.DB, c *model.Caixa) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	atual, ok := r.caixas[c.ID]
	if !ok || atual.Status != model.CaixaAberto {
		return repository.ErrEstadoAlterado
	}
	cc := *c
	cc.Status = model.CaixaFechado
	r.caixas[c.ID] = &cc
	return nil
}

func (r caixaStub) Historico(_ context.Context, f dto.CaixaHistoricoFilter) ([]model.Caixa, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Caixa
	for _, c := range r.caixas {
		if f.LojaID != "" && c.LojaID.String() != f.LojaID {
			continue
		}
		if f.UsuarioID != "" && c.UsuarioID.String() != f.UsuarioID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AbertoEm.After(out[j].AbertoEm) })
	return paginar(out, f.Paginacao), int64(len(out)), nil
}

func (r caixaStub) CreateMovimentacao(_ context.Context, _ *gorm.DB, m *model.MovimentacaoCaixa) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.movCaixa = append(r.movCaixa, *m)
	return nil
}

func (r caixaStub) ListMovimentacoes(_ context.Context, caixaID uuid.UUID) ([]model.MovimentacaoCaixa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimentacaoCaixa
	for _, m := range r.movCaixa {
		if m.CaixaID == caixaID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r caixaStub) Totais(_ context.Context, _ *gorm.DB, caixaID uuid.UUID) ([]repository.TotalMovimentacao, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := make(map[[2]string]int)
	var out []repository.TotalMovimentacao
	for _, m := range r.movCaixa {
		if m.CaixaID != caixaID {
			continue
		}
		k := [2]string{m.Tipo, m.FormaPagamento}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, repository.TotalMovimentacao{Tipo: m.Tipo, FormaPagamento: m.FormaPagamento})
		}
		out[i].Total = out[i].Total.Add(m.Valor)
	}
	return out, nil
}

// ── Venda ────────────────────────────────────────────────────────────────────

type vendaStub struct{ *store }

func (r vendaStub) DB() *gorm.DB { return nil }

func (r vendaStub) Create(_ context.Context, _ *gorm.DB, v *model.Venda) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = time.Now()
	for i := range v.Itens {
		v.Itens[i].ID = uuid.New()
		v.Itens[i].VendaID = v.ID
	}
	for i := range v.Pagamentos {
		v.Pagamentos[i].ID = uuid.New()
		v.Pagamentos[i].VendaID = v.ID
	}
	c := *v
	r.vendas[v.ID] = &c
	return nil
}

func (r vendaStub) FindByID(_ context.Context, id uuid.UUID) (*model.Venda, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vendas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *v
	return &c, nil
}

func (r vendaStub) NextNumero(_ context.Context, _ *gorm.DB) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.numero++
	return r.numero, nil
}

func (r vendaStub) Cancelar(_ context.Context, _ *gorm.DB, id uuid.UUID, motivo string, em time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vendas[id]
	if !ok || v.Status != model.VendaConcluida {
		return repository.ErrEstadoAlterado
	}
	v.Status = model.VendaCancelada
	v.MotivoCancelamento = &motivo
	v.CanceladaEm = &em
	return nil
}

func (r vendaStub) SetComprovantePath(_ context.Context, id uuid.UUID, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.vendas[id]; ok {
		v.ComprovantePath = &path
	}
	return nil
}

func (r vendaStub) ListSemComprovante(context.Context, time.Time, time.Time, int) ([]model.Venda, error) {
	return nil, nil
}

func (r vendaStub) CountByCaixa(_ context.Context, caixaID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, v := range r.vendas {
		if v.CaixaID == caixaID && v.Status == model.VendaConcluida {
			n++
		}
	}
	return n, nil
}

func (r vendaStub) List(_ context.Context, f dto.VendaFilter) ([]model.Venda, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Venda
	for _, v := range r.vendas {
		if f.LojaID != "" && v.LojaID.String() != f.LojaID {
			continue
		}
		if f.CaixaID != "" && v.CaixaID.String() != f.CaixaID {
			continue
		}
		if f.Status != "" && f.Status != "all" && v.Status != f.Status {
			continue
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Numero > out[j].Numero })
	return paginar(out, f.Paginacao), int64(len(out)), nil
}

// ── Log ──────────────────────────────────────────────────────────────────────

type logStub struct{ *store }

func (r logStub) Create(_ context.Context, l *model.Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logErr != nil {
		return r.logErr
	}
	l.ID = uuid.New()
	r.logs = append(r.logs, *l)
	return nil
}

func (r logStub) List(_ context.Context, f dto.LogFilter) ([]model.Log, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Log
	for _, l := range r.logs {
		if f.LojaID != "" && (l.LojaID == nil || l.LojaID.String() != f.LojaID) {
			continue
		}
		if f.Entidade != "" && l.Entidade != f.Entidade {
			continue
		}
		out = append(out, l)
	}
	return paginar(out, f.Paginacao), int64(len(out)), nil
}

var (
	_ repository.LojaRepository                = lojaStub{}
	_ repository.UsuarioRepository             = usuarioStub{}
	_ repository.FuncionarioRepository         = funcionarioStub{}
	_ repository.ProdutoRepository             = produtoStub{}
	_ repository.VariacaoRepository            = variacaoStub{}
	_ repository.MovimentacaoEstoqueRepository = movEstoqueStub{}
	_ repository.CaixaRepository               = caixaStub{}
	_ repository.VendaRepository               = vendaStub{}
	_ repository.LogRepository                 = logStub{}
)

// ── Collaborator fakes ───────────────────────────────────────────────────────

type cacheStub struct {
	mu           sync.Mutex
	itens        map[string]*dto.ConsultaPrecoResponse
	invalidadas  []string
	hits, misses int
}

func newCacheStub() *cacheStub {
	return &cacheStub{itens: make(map[string]*dto.ConsultaPrecoResponse)}
}

func (c *cacheStub) Get(_ context.Context, chave string) (*dto.ConsultaPrecoResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.itens[chave]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

func (c *cacheStub) Set(_ context.Context, chave string, v *dto.ConsultaPrecoResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.itens[chave] = v
}

func (c *cacheStub) Invalidate(_ context.Context, chaves ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range chaves {
		delete(c.itens, k)
		c.invalidadas = append(c.invalidadas, k)
	}
}

type filaStub struct {
	vendas []uuid.UUID
	emails []*string
	err    error
}

func (f *filaStub) EnqueueComprovante(_ context.Context, vendaID uuid.UUID, email *string) error {
	if f.err != nil {
		return f.err
	}
	f.vendas = append(f.vendas, vendaID)
	f.emails = append(f.emails, email)
	return nil
}

type geradorStub struct {
	dir      string
	chamadas int
}

func (g *geradorStub) Gerar(v *model.Venda) (string, error) {
	g.chamadas++
	path := filepath.Join(g.dir, fmt.Sprintf("venda-%d.pdf", v.Numero))
	return path, os.WriteFile(path, []byte("%PDF-1.3"), 0o644)
}

// ── Test environment ─────────────────────────────────────────────────────────

type env struct {
	st    *store
	cfg   *config.Config
	cache *cacheStub
	fila  *filaStub

	logs         service.LogService
	auth         service.AuthService
	lojas        service.LojaService
	funcionarios service.FuncionarioService
	produtos     service.ProdutoService
	estoque      service.EstoqueService
	caixas       service.CaixaService
	vendas       service.VendaService
	gerador      *geradorStub
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := newStore()
	cfg := &config.Config{
		JWTSecret:           "test-secret-with-at-least-32-bytes!!",
		JWTExpirationHours:  8,
		JWTRefreshHours:     24,
		DiferencaAlertaPct:  1,
		DiferencaCriticaPct: 5,
		EstoqueMinimoPadrao: 5,
	}
	e := &env{st: st, cfg: cfg, cache: newCacheStub(), fila: &filaStub{}, gerador: &geradorStub{dir: t.TempDir()}}

	e.logs = service.NewLogService(logStub{st})
	e.auth = service.NewAuthService(usuarioStub{st}, lojaStub{st}, e.logs, cfg)
	e.lojas = service.NewLojaService(lojaStub{st}, e.logs)
	e.funcionarios = service.NewFuncionarioService(funcionarioStub{st}, lojaStub{st}, usuarioStub{st}, e.logs)
	e.produtos = service.NewProdutoService(produtoStub{st}, variacaoStub{st}, movEstoqueStub{st}, e.cache, e.logs, cfg)
	e.estoque = service.NewEstoqueService(variacaoStub{st}, movEstoqueStub{st}, e.cache, e.logs)
	e.caixas = service.NewCaixaService(caixaStub{st}, lojaStub{st}, vendaStub{st}, e.logs, cfg)
	e.vendas = service.NewVendaService(vendaStub{st}, caixaStub{st}, variacaoStub{st}, e.estoque, e.cache, e.logs, e.fila, e.gerador)
	return e
}

func (e *env) seedLoja(t *testing.T) uuid.UUID {
	t.Helper()
	l := &model.Loja{Nome: "Loja " + uuid.NewString()[:8], CNPJ: uuid.NewString()[:14], Ativo: true}
	require.NoError(t, lojaStub{e.st}.Create(context.Background(), l))
	return l.ID
}

// seedUsuario inserts a user with password "senha123" and returns its actor.
func (e *env) seedUsuario(t *testing.T, role string, lojaID *uuid.UUID) service.Ator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("senha123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.Usuario{
		Username:     role + "-" + uuid.NewString()[:8],
		Nome:         "Usuário " + role,
		PasswordHash: string(hash),
		Role:         role,
		LojaID:       lojaID,
		Ativo:        true,
	}
	require.NoError(t, usuarioStub{e.st}.Create(context.Background(), u))
	return service.Ator{UsuarioID: u.ID, Username: u.Username, Role: role, LojaID: lojaID, IP: "127.0.0.1"}
}

// seedVariacao creates a product with one variation; preco nil inherits base.
func (e *env) seedVariacao(t *testing.T, lojaID uuid.UUID, base decimal.Decimal, preco *decimal.Decimal, estoque int) *model.Variacao {
	t.Helper()
	barcode := uuid.NewString()[:12]
	p := &model.Produto{
		LojaID:       lojaID,
		Nome:         "Camiseta",
		Categoria:    "roupas",
		CodigoBarras: &barcode,
		PrecoBase:    base,
		Ativo:        true,
		Variacoes: []model.Variacao{{
			Nome:          "M",
			SKU:           "SKU-" + uuid.NewString()[:8],
			Preco:         preco,
			Estoque:       estoque,
			EstoqueMinimo: 2,
			Ativo:         true,
		}},
	}
	require.NoError(t, produtoStub{e.st}.Create(context.Background(), nil, p))
	v, err := variacaoStub{e.st}.FindByID(context.Background(), p.Variacoes[0].ID)
	require.NoError(t, err)
	return v
}

func (e *env) estoqueDe(t *testing.T, id uuid.UUID) int {
	t.Helper()
	v, err := variacaoStub{e.st}.FindByID(context.Background(), id)
	require.NoError(t, err)
	return v.Estoque
}

func (e *env) movsCaixa(caixaID uuid.UUID) []model.MovimentacaoCaixa {
	out, _ := caixaStub{e.st}.ListMovimentacoes(context.Background(), caixaID)
	return out
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

var errBoom = errors.New("boom")
