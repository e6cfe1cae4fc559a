package infra

import (
	"context"
	"fmt"
	"net/smtp"

	"vlstore/internal/config"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
)

// Mensagem is one outgoing e-mail. Anexo is an optional file path.
type Mensagem struct {
	Para    string
	Assunto string
	Corpo   string
	Anexo   string
}

// Mailer wraps SMTP configuration for sending receipts with PDF attachments.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
	send     func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(cfg *config.Config) *Mailer {
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     from,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		send:     func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

// Configurado reports whether an SMTP host was provided.
func (m *Mailer) Configurado() bool { return m.host != "" }

func (m *Mailer) montar(msg Mensagem) (*email.Email, error) {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{msg.Para}
	e.Subject = msg.Assunto
	e.Text = []byte(msg.Corpo)

	if msg.Anexo != "" {
		if _, err := e.AttachFile(msg.Anexo); err != nil {
			return nil, fmt.Errorf("mailer: anexar PDF: %w", err)
		}
	}
	return e, nil
}

// Enviar delivers msg. The context is only checked before dialing; net/smtp
// has no cancellation.
func (m *Mailer) Enviar(ctx context.Context, msg Mensagem) error {
	if !m.Configurado() {
		return fmt.Errorf("mailer: SMTP_HOST não configurado")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e, err := m.montar(msg)
	if err != nil {
		return err
	}
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return m.send(e, m.addr, auth)
}

// Comprovante describes the receipt e-mail of one sale.
type Comprovante struct {
	Para     string
	Numero   int64
	Total    decimal.Decimal
	NomeLoja string
	PDFPath  string
}

// EnviarComprovante sends the PDF receipt to the customer.
func (m *Mailer) EnviarComprovante(ctx context.Context, c Comprovante) error {
	return m.Enviar(ctx, Mensagem{
		Para:    c.Para,
		Assunto: fmt.Sprintf("%s - Comprovante da venda nº %d", c.NomeLoja, c.Numero),
		Corpo: fmt.Sprintf("Obrigado pela sua compra!\n\nValor total: %s\nSegue em anexo o comprovante da venda nº %d.\n\n%s",
			FormatarMoeda(c.Total), c.Numero, c.NomeLoja),
		Anexo: c.PDFPath,
	})
}
