package worker

// Sends PDF receipts to customers over SMTP. Every send goes through the
// circuit breaker so a dead relay fails fast instead of tying up workers.

import (
	"context"
	"encoding/json"
	"fmt"

	"vlstore/internal/infra"

	"github.com/rs/zerolog/log"
)

type Enviador interface {
	EnviarComprovante(ctx context.Context, c infra.Comprovante) error
}

type EmailWorker struct {
	mailer   Enviador
	breaker  *infra.CircuitBreaker
	nomeLoja string
}

func NewEmailWorker(mailer Enviador, breaker *infra.CircuitBreaker, nomeLoja string) *EmailWorker {
	return &EmailWorker{mailer: mailer, breaker: breaker, nomeLoja: nomeLoja}
}

func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p EmailPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("email_worker: payload inválido: %w", err)
	}
	if p.Para == "" {
		log.Warn().Str("venda_id", p.VendaID.String()).Msg("email_worker: destinatário vazio, ignorando")
		return nil
	}

	err := w.breaker.Execute(ctx, func(ctx context.Context) error {
		return w.mailer.EnviarComprovante(ctx, infra.Comprovante{
			Para:     p.Para,
			Numero:   p.Numero,
			Total:    p.Total,
			NomeLoja: w.nomeLoja,
			PDFPath:  p.PDFPath,
		})
	})
	if err != nil {
		return fmt.Errorf("email_worker: enviar para %s: %w", p.Para, err)
	}
	log.Info().Str("to", p.Para).Int64("numero", p.Numero).Msg("email_worker: comprovante enviado")
	return nil
}
