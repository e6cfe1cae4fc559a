package handler

import (
	"context"
	"net/http"
	"time"

	"vlstore/internal/infra"
	"vlstore/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type HealthResponse struct {
	OK    bool                         `json:"ok"`
	DB    string                       `json:"db"`
	Redis string                       `json:"redis"`
	SMTP  string                       `json:"smtp,omitempty"`
	Filas map[string]worker.EstadoFila `json:"filas,omitempty"`
}

// Health godoc
// @Summary     Estado do serviço
// @Description Postgres, Redis, circuito SMTP e backlog das filas de jobs
// @Tags        health
// @Produce     json
// @Success     200 {object} HealthResponse
// @Failure     503 {object} HealthResponse
// @Router      /health [get]
func Health(db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		resp := HealthResponse{DB: "connected", Redis: "connected"}
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			resp.DB = "error"
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			resp.Redis = "error"
		} else if filas, err := worker.EstadoFilas(ctx, rdb); err == nil {
			resp.Filas = filas
		} else {
			log.Warn().Err(err).Msg("health: falha ao ler filas")
		}
		if smtpCB != nil {
			resp.SMTP = smtpCB.State().String()
		}

		resp.OK = resp.DB == "connected" && resp.Redis == "connected"
		status := http.StatusOK
		if !resp.OK {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	}
}
