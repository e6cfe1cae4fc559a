package handler

import (
	"net/http"

	"vlstore/internal/apierror"
	"vlstore/internal/dto"
	"vlstore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProdutosHandler struct {
	svc     service.ProdutoService
	estoque service.EstoqueService
}

func NewProdutosHandler(svc service.ProdutoService, estoque service.EstoqueService) *ProdutosHandler {
	return &ProdutosHandler{svc: svc, estoque: estoque}
}

// Criar godoc
// @Summary Cadastra um produto com suas variações
// @Tags produtos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CriarProdutoRequest true "Produto"
// @Success 201 {object} dto.ProdutoResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/produtos [post]
func (h *ProdutosHandler) Criar(c *gin.Context) {
	var req dto.CriarProdutoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Criar(c.Request.Context(), atorFromContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary Lista produtos da loja
// @Tags produtos
// @Produce json
// @Security BearerAuth
// @Param nome query string false "Filtro por nome"
// @Param categoria query string false "Filtro por categoria"
// @Param ativo query string false "true (padrão), false ou all"
// @Success 200 {object} dto.Pagina[dto.ProdutoResponse]
// @Router /v1/produtos [get]
func (h *ProdutosHandler) Listar(c *gin.Context) {
	var filter dto.ProdutoFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), atorFromContext(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProdutosHandler) Obter(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obter(c.Request.Context(), atorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProdutosHandler) Atualizar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AtualizarProdutoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Atualizar(c.Request.Context(), atorFromContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProdutosHandler) Desativar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Desativar(c.Request.Context(), atorFromContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AdicionarVariacao POST /v1/produtos/:id/variacoes
func (h *ProdutosHandler) AdicionarVariacao(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.VariacaoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AdicionarVariacao(c.Request.Context(), atorFromContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// AtualizarVariacao PUT /v1/variacoes/:id
func (h *ProdutosHandler) AtualizarVariacao(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AtualizarVariacaoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AtualizarVariacao(c.Request.Context(), atorFromContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProdutosHandler) DesativarVariacao(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DesativarVariacao(c.Request.Context(), atorFromContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AjustarEstoque godoc
// @Summary Ajuste manual de estoque de uma variação
// @Tags estoque
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da variação"
// @Param body body dto.AjustarEstoqueRequest true "Ajuste"
// @Success 200 {object} dto.MovimentacaoEstoqueResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/variacoes/{id}/estoque [patch]
func (h *ProdutosHandler) AjustarEstoque(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AjustarEstoqueRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.estoque.AjustarEstoque(c.Request.Context(), atorFromContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Estoque ──────────────────────────────────────────────────────────────────

type EstoqueHandler struct{ svc service.EstoqueService }

func NewEstoqueHandler(svc service.EstoqueService) *EstoqueHandler { return &EstoqueHandler{svc: svc} }

// Alertas GET /v1/estoque/alertas?loja_id=
func (h *EstoqueHandler) Alertas(c *gin.Context) {
	lojaID := c.Query("loja_id")
	if lojaID != "" {
		if _, err := uuid.Parse(lojaID); err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("loja_id inválido"))
			return
		}
	}
	resp, err := h.svc.ListarAlertas(c.Request.Context(), atorFromContext(c), lojaID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EstoqueHandler) Movimentacoes(c *gin.Context) {
	var filter dto.MovimentacaoEstoqueFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarMovimentacoes(c.Request.Context(), atorFromContext(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Consulta de preço (pública) ──────────────────────────────────────────────

// ConsultaPrecosHandler serves the public price check endpoint. No
// authentication and no side effects.
type ConsultaPrecosHandler struct{ svc service.ProdutoService }

func NewConsultaPrecosHandler(svc service.ProdutoService) *ConsultaPrecosHandler {
	return &ConsultaPrecosHandler{svc: svc}
}

// PorBarcode godoc
// @Summary Consulta de preço por código de barras (sem autenticação)
// @Tags preco
// @Produce json
// @Param barcode path string true "Código de barras"
// @Param loja_id query string false "Restringe a uma loja"
// @Success 200 {object} dto.ConsultaPrecoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/preco/{barcode} [get]
func (h *ConsultaPrecosHandler) PorBarcode(c *gin.Context) {
	var lojaID *uuid.UUID
	if raw := c.Query("loja_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("loja_id inválido"))
			return
		}
		lojaID = &id
	}
	resp, err := h.svc.ConsultarPreco(c.Request.Context(), c.Param("barcode"), lojaID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
