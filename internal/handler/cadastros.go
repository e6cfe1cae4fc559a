package handler

import (
	"net/http"
	"strconv"

	"vlstore/internal/dto"
	"vlstore/internal/service"

	"github.com/gin-gonic/gin"
)

// ── Lojas ────────────────────────────────────────────────────────────────────

type LojasHandler struct{ svc service.LojaService }

func NewLojasHandler(svc service.LojaService) *LojasHandler { return &LojasHandler{svc: svc} }

// Criar godoc
// @Summary Cadastra uma loja
// @Tags lojas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CriarLojaRequest true "Loja"
// @Success 201 {object} dto.LojaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/lojas [post]
func (h *LojasHandler) Criar(c *gin.Context) {
	var req dto.CriarLojaRequest
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

// Listar GET /v1/lojas?incluir_inativas=true
func (h *LojasHandler) Listar(c *gin.Context) {
	incluir, _ := strconv.ParseBool(c.Query("incluir_inativas"))
	resp, err := h.svc.Listar(c.Request.Context(), atorFromContext(c), incluir)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LojasHandler) Obter(c *gin.Context) {
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

func (h *LojasHandler) Atualizar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AtualizarLojaRequest
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

func (h *LojasHandler) Desativar(c *gin.Context) {
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

// ── Funcionários ─────────────────────────────────────────────────────────────

type FuncionariosHandler struct{ svc service.FuncionarioService }

func NewFuncionariosHandler(svc service.FuncionarioService) *FuncionariosHandler {
	return &FuncionariosHandler{svc: svc}
}

// Criar godoc
// @Summary Cadastra um funcionário
// @Tags funcionarios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CriarFuncionarioRequest true "Funcionário"
// @Success 201 {object} dto.FuncionarioResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/funcionarios [post]
func (h *FuncionariosHandler) Criar(c *gin.Context) {
	var req dto.CriarFuncionarioRequest
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

func (h *FuncionariosHandler) Listar(c *gin.Context) {
	var filter dto.FuncionarioFilter
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

func (h *FuncionariosHandler) Obter(c *gin.Context) {
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

func (h *FuncionariosHandler) Atualizar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AtualizarFuncionarioRequest
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

func (h *FuncionariosHandler) Desativar(c *gin.Context) {
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

// ── Logs ─────────────────────────────────────────────────────────────────────

type LogsHandler struct{ svc service.LogService }

func NewLogsHandler(svc service.LogService) *LogsHandler { return &LogsHandler{svc: svc} }

// Listar godoc
// @Summary Trilha de auditoria
// @Tags logs
// @Produce json
// @Security BearerAuth
// @Param loja_id query string false "Loja"
// @Param usuario_id query string false "Usuário"
// @Param entidade query string false "Entidade"
// @Success 200 {object} dto.Pagina[dto.LogResponse]
// @Router /v1/logs [get]
func (h *LogsHandler) Listar(c *gin.Context) {
	var filter dto.LogFilter
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
