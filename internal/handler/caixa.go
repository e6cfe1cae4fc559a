package handler

import (
	"net/http"

	"vlstore/internal/dto"
	"vlstore/internal/service"

	"github.com/gin-gonic/gin"
)

type CaixaHandler struct{ svc service.CaixaService }

func NewCaixaHandler(svc service.CaixaService) *CaixaHandler { return &CaixaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre um caixa para o operador autenticado
// @Tags caixas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCaixaRequest true "Dados de abertura"
// @Success 201 {object} dto.CaixaResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caixas/abrir [post]
func (h *CaixaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCaixaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), atorFromContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarMovimentacao godoc
// @Summary Registra sangria ou suprimento
// @Tags caixas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do caixa"
// @Param body body dto.MovimentacaoManualRequest true "Movimentação"
// @Success 201 {object} dto.MovimentacaoCaixaResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/caixas/{id}/movimentacoes [post]
func (h *CaixaHandler) RegistrarMovimentacao(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.MovimentacaoManualRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarMovimentacao(c.Request.Context(), atorFromContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Fechar godoc
// @Summary Fecha o caixa com os valores declarados por forma de pagamento
// @Tags caixas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do caixa"
// @Param body body dto.FecharCaixaRequest true "Declaração"
// @Success 200 {object} dto.FecharCaixaResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caixas/{id}/fechar [post]
func (h *CaixaHandler) Fechar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.FecharCaixaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Fechar(c.Request.Context(), atorFromContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Relatorio GET /v1/caixas/:id/relatorio
func (h *CaixaHandler) Relatorio(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Relatorio(c.Request.Context(), atorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ativo returns the caller's open caixa, 404 when there is none.
func (h *CaixaHandler) Ativo(c *gin.Context) {
	resp, err := h.svc.Ativo(c.Request.Context(), atorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CaixaHandler) Historico(c *gin.Context) {
	var filter dto.CaixaHistoricoFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Historico(c.Request.Context(), atorFromContext(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CaixaHandler) Movimentacoes(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListarMovimentacoes(c.Request.Context(), atorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
