package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type OTPIssuedEvent struct {
	OTPID     int64
	Email     string
	Type      entity.OTPType
	Code      string
	ExpiresAt time.Time
}

type repoMessaging interface {
	PublishOTPIssued(ctx context.Context, msg OTPIssuedEvent) error
}

type repoAccount interface {
	GetAccountByEmail(ctx context.Context, email string) (*entity.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*entity.Account, error)

	EnsureAccount(ctx context.Context, acc entity.NewAccount) (bool, error)
	UpdateAccountLastLogin(ctx context.Context, id int64, at time.Time) error
	ResetAccountPassword(ctx context.Context, acc entity.Account, newHash string, at time.Time) error
}

type repoOTP interface {
	IssueOTP(ctx context.Context, otp entity.OTP) error
	ConsumeOTP(ctx context.Context, email string, t entity.OTPType, code string, now time.Time) (*entity.OTPVerification, error)
	DeleteOTP(ctx context.Context, email string, t entity.OTPType) error
}

type Usecase struct {
	repoAccount   repoAccount
	repoOTP       repoOTP
	repoMessaging repoMessaging
	validator     validator.Validator
	cfg           config.Config
	hmac          hash.Hash
	password      hash.Hash
	uid           uid.NumberID
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
	enforcer      *casbin.Enforcer
	goroutine     *goroutine.Manager
	metrics       *metrics
	genCode       func() (string, error)
}

type Dependency struct {
	RepoAccount   repoAccount
	RepoOTP       repoOTP
	RepoMessaging repoMessaging
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	Password      hash.Hash
	UID           uid.NumberID
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
	Enforcer      *casbin.Enforcer
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoAccount:   dep.RepoAccount,
		repoOTP:       dep.RepoOTP,
		repoMessaging: dep.RepoMessaging,
		validator:     dep.Validator,
		cfg:           dep.Config,
		hmac:          dep.HMAC,
		password:      dep.Password,
		uid:           dep.UID,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
		enforcer:      dep.Enforcer,
		goroutine:     dep.Goroutine,
		metrics:       newMetrics(dep.Instrument.Meter("identity.usecase")),
		genCode:       generateCode,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

func (s *Usecase) ensureAccountActive(ctx context.Context, acc *entity.Account) error {
	if !acc.IsActive {
		slog.WarnContext(ctx, "account is inactive", "account_id", acc.ID)
		return goerror.NewBusiness("account is inactive", goerror.CodeUnauthorized)
	}
	return nil
}

// ensureAccountAllowed checks the role of acc against the permission map.
func (s *Usecase) ensureAccountAllowed(ctx context.Context, acc *entity.Account, obj, act string) error {
	if acc.Role.IsUnknown() {
		slog.WarnContext(ctx, "account role is unrecognized", "account_id", acc.ID, "role", int16(acc.Role))
		return goerror.NewBusiness("account not allowed", goerror.CodeForbidden)
	}

	ok, err := s.enforcer.Enforce(acc.Role.String(), obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "account_id", acc.ID, "error", err)
		return goerror.NewServer(err)
	}
	if !ok {
		slog.WarnContext(ctx, "account not allowed", "account_id", acc.ID, "role", acc.Role.String(), "object", obj, "action", act)
		return goerror.NewBusiness("account not allowed", goerror.CodeForbidden)
	}

	return nil
}

// authenticated resolves the account behind the verified token in ctx and
// rejects deactivated accounts and tokens minted before a password change.
func (s *Usecase) authenticated(ctx context.Context, obj, act string) (*entity.Account, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("authentication required", goerror.CodeUnauthorized)
	}

	acc, err := s.repoAccount.GetAccountByID(ctx, clm.AccountID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "token account not found", "account_id", clm.AccountID)
		return nil, goerror.NewBusiness("authentication required", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by id", "account_id", clm.AccountID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.ensureAccountActive(ctx, acc); err != nil {
		return nil, err
	}

	if acc.IssuedBeforePasswordChange(clm.IssuedAtTime()) {
		slog.WarnContext(ctx, "token issued before password change", "account_id", acc.ID, "jti", clm.ID)
		return nil, goerror.NewBusiness("session expired, please sign in again", goerror.CodeUnauthorized)
	}

	if err := s.ensureAccountAllowed(ctx, acc, obj, act); err != nil {
		return nil, err
	}

	return acc, nil
}
