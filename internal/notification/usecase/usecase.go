package usecase

import (
	"bytes"
	"context"
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/shandysiswandi/otpgate/internal/notification/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

//go:embed templates/*
var templateFS embed.FS

type repoMail interface {
	Send(ctx context.Context, msg mail.Message) error
}

type Usecase struct {
	cfg         config.Config
	clock       clock.Clocker
	validator   validator.Validator
	repoMail    repoMail
	idempotency idempotency.Idempotency
	ins         instrument.Instrumentation
	htmlOTP     *htmltemplate.Template
	textOTP     *texttemplate.Template
}

type Dependency struct {
	Config      config.Config
	Clock       clock.Clocker
	Validator   validator.Validator
	RepoMail    repoMail
	Idempotency idempotency.Idempotency
	Instrument  instrument.Instrumentation
}

func NewNotification(dep Dependency) (*Usecase, error) {
	htmlOTP, err := htmltemplate.New("otp.html").Option("missingkey=zero").ParseFS(templateFS, "templates/otp.html")
	if err != nil {
		return nil, err
	}

	textOTP, err := texttemplate.New("otp.txt").Option("missingkey=zero").ParseFS(templateFS, "templates/otp.txt")
	if err != nil {
		return nil, err
	}

	return &Usecase{
		cfg:         dep.Config,
		clock:       dep.Clock,
		validator:   dep.Validator,
		repoMail:    dep.RepoMail,
		idempotency: dep.Idempotency,
		ins:         dep.Instrument,
		htmlOTP:     htmlOTP,
		textOTP:     textOTP,
	}, nil
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}

func (s *Usecase) renderOTPMail(data entity.OTPMail) (htmlBody, textBody string, err error) {
	var hb, tb bytes.Buffer
	if err := s.htmlOTP.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := s.textOTP.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
