package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"vlstore/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// VendaStore is what the receipt worker needs from the sales repository.
type VendaStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venda, error)
	SetComprovantePath(ctx context.Context, id uuid.UUID, path string) error
}

type Gerador interface {
	Gerar(v *model.Venda) (string, error)
}

type emailEnqueuer interface {
	EnqueueEmail(ctx context.Context, p EmailPayload) error
}

// ComprovanteWorker renders the PDF receipt of a sale and, when the customer
// left an e-mail, schedules its delivery.
type ComprovanteWorker struct {
	vendas  VendaStore
	gerador Gerador
	fila    emailEnqueuer
}

func NewComprovanteWorker(vendas VendaStore, gerador Gerador, fila emailEnqueuer) *ComprovanteWorker {
	return &ComprovanteWorker{vendas: vendas, gerador: gerador, fila: fila}
}

func (w *ComprovanteWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p ComprovantePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("comprovante_worker: payload inválido: %w", err)
	}

	venda, err := w.vendas.FindByID(ctx, p.VendaID)
	if err != nil {
		return fmt.Errorf("comprovante_worker: carregar venda %s: %w", p.VendaID, err)
	}

	path := ""
	if venda.ComprovantePath != nil {
		if _, err := os.Stat(*venda.ComprovantePath); err == nil {
			path = *venda.ComprovantePath
		}
	}
	if path == "" {
		path, err = w.gerador.Gerar(venda)
		if err != nil {
			return fmt.Errorf("comprovante_worker: gerar PDF: %w", err)
		}
		if err := w.vendas.SetComprovantePath(ctx, venda.ID, path); err != nil {
			return fmt.Errorf("comprovante_worker: salvar caminho: %w", err)
		}
	}
	log.Info().Int64("numero", venda.Numero).Str("path", path).Msg("comprovante_worker: PDF gerado")

	email := venda.ClienteEmail
	if p.ClienteEmail != nil && *p.ClienteEmail != "" {
		email = p.ClienteEmail
	}
	if email == nil || *email == "" {
		return nil
	}
	return w.fila.EnqueueEmail(ctx, EmailPayload{
		VendaID: venda.ID,
		Numero:  venda.Numero,
		Total:   venda.Total,
		Para:    *email,
		PDFPath: path,
	})
}
