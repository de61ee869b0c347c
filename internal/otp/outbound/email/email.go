package email

import (
	"bytes"
	"context"
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/shandysiswandi/gootp/internal/pkg/clock"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/mail"
	"go.opentelemetry.io/otel/codes"
)

//go:embed templates/*
var templates embed.FS

type Options struct {
	Subject    string
	AppName    string
	Expiration time.Duration
}

type templateData struct {
	AppName          string
	Code             string
	ExpiresInMinutes int
	Year             string
}

type Mail struct {
	client mail.Mail
	opts   Options
	clock  clock.Clocker
	ins    instrument.Instrumentation
	html   *htmltemplate.Template
	text   *texttemplate.Template
}

func New(client mail.Mail, opts Options, clk clock.Clocker, ins instrument.Instrumentation) (*Mail, error) {
	html, err := htmltemplate.New("otp.html").Option("missingkey=error").ParseFS(templates, "templates/otp.html")
	if err != nil {
		return nil, err
	}

	text, err := texttemplate.New("otp.txt").Option("missingkey=error").ParseFS(templates, "templates/otp.txt")
	if err != nil {
		return nil, err
	}

	return &Mail{client: client, opts: opts, clock: clk, ins: ins, html: html, text: text}, nil
}

// Send emails code to identity. The code is never logged or traced.
func (m *Mail) Send(ctx context.Context, identity, code string) (err error) {
	ctx, span := m.ins.Tracer("otp.outbound.email").Start(ctx, "Send")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	data := templateData{
		AppName:          m.opts.AppName,
		Code:             code,
		ExpiresInMinutes: int(m.opts.Expiration / time.Minute),
		Year:             m.clock.Now().Format("2006"),
	}

	var html, text bytes.Buffer
	if err := m.html.Execute(&html, data); err != nil {
		return err
	}
	if err := m.text.Execute(&text, data); err != nil {
		return err
	}

	return m.client.Send(ctx, mail.Message{
		To:       []string{identity},
		Subject:  m.opts.Subject,
		TextBody: text.String(),
		HTMLBody: html.String(),
	})
}
