package service

import (
	"context"
	"encoding/json"
	"time"

	"vlstore/internal/dto"
	"vlstore/internal/model"
	"vlstore/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Audit actions.
const (
	AcaoLogin      = "login"
	AcaoCriar      = "criar"
	AcaoAtualizar  = "atualizar"
	AcaoDesativar  = "desativar"
	AcaoReativar   = "reativar"
	AcaoAbrir      = "abrir"
	AcaoFechar     = "fechar"
	AcaoMovimentar = "movimentar"
	AcaoRegistrar  = "registrar"
	AcaoCancelar   = "cancelar"
	AcaoAjustar    = "ajustar_estoque"
)

// Audited entities.
const (
	EntUsuario     = "usuario"
	EntLoja        = "loja"
	EntFuncionario = "funcionario"
	EntProduto     = "produto"
	EntVariacao    = "variacao"
	EntCaixa       = "caixa"
	EntVenda       = "venda"
)

// Entrada describes one audit record.
type Entrada struct {
	Acao       string
	Entidade   string
	EntidadeID *uuid.UUID
	LojaID     *uuid.UUID
	Detalhes   any
}

type LogService interface {
	// Registrar writes an audit record. It never fails the caller: storage
	// errors are logged and swallowed.
	Registrar(ctx context.Context, ator Ator, e Entrada)
	Listar(ctx context.Context, ator Ator, filter dto.LogFilter) (*dto.Pagina[dto.LogResponse], error)
}

type logService struct {
	repo repository.LogRepository
}

func NewLogService(repo repository.LogRepository) LogService {
	return &logService{repo: repo}
}

func (s *logService) Registrar(ctx context.Context, ator Ator, e Entrada) {
	detalhes := []byte("{}")
	if e.Detalhes != nil {
		b, err := json.Marshal(e.Detalhes)
		if err != nil {
			log.Warn().Err(err).Str("acao", e.Acao).Msg("audit: detalhes não serializáveis")
		} else {
			detalhes = b
		}
	}

	entry := &model.Log{
		Acao:       e.Acao,
		Entidade:   e.Entidade,
		EntidadeID: e.EntidadeID,
		LojaID:     e.LojaID,
		Detalhes:   string(detalhes),
		IP:         ator.IP,
		CreatedAt:  time.Now(),
	}
	if ator.UsuarioID != uuid.Nil {
		uid := ator.UsuarioID
		entry.UsuarioID = &uid
	}
	if entry.LojaID == nil {
		entry.LojaID = ator.LojaID
	}

	// The business operation already committed; the audit write must not
	// be cancelled along with the request.
	if err := s.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		log.Error().Err(err).
			Str("acao", e.Acao).
			Str("entidade", e.Entidade).
			Msg("audit: falha ao registrar log")
	}
}

func (s *logService) Listar(ctx context.Context, ator Ator, filter dto.LogFilter) (*dto.Pagina[dto.LogResponse], error) {
	if !ator.Gerencia() {
		return nil, proibido("apenas admin ou gerente podem consultar logs")
	}
	loja, err := ator.escopoLoja(filter.LojaID)
	if err != nil {
		return nil, err
	}
	filter.LojaID = loja
	filter.Normalizar()

	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.LogResponse, len(logs))
	for i, l := range logs {
		data[i] = dto.LogResponse{
			ID:         l.ID.String(),
			UsuarioID:  uuidPtrStr(l.UsuarioID),
			LojaID:     uuidPtrStr(l.LojaID),
			Acao:       l.Acao,
			Entidade:   l.Entidade,
			EntidadeID: uuidPtrStr(l.EntidadeID),
			Detalhes:   json.RawMessage(l.Detalhes),
			IP:         l.IP,
			CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		}
	}
	p := dto.NovaPagina(data, total, filter.Page, filter.Limit)
	return &p, nil
}

func uuidPtrStr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func timePtrStr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func ptrUUID(id uuid.UUID) *uuid.UUID { return &id }
