package authsvc

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yusufsyaifudin/pdfmailer/internal/svc/userrepo"
	"github.com/yusufsyaifudin/pdfmailer/pkg/cache"
	"github.com/yusufsyaifudin/pdfmailer/pkg/tracer"
	"github.com/yusufsyaifudin/pdfmailer/pkg/uid"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"github.com/yusufsyaifudin/ylog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultSessionExpiry = 24 * time.Hour
	DefaultSessionPrefix = "pdfmailer:session:"

	tokenBytes = 32
)

type Config struct {
	UserRepo userrepo.Repo `validate:"required"`
	UIDGen   uid.UID       `validate:"required"`
	Sessions cache.Cache   `validate:"required"`

	SessionExpiry time.Duration `validate:"-"`
	SessionPrefix string        `validate:"-"`

	// BcryptCost zero means bcrypt.DefaultCost.
	BcryptCost int              `validate:"-"`
	Now        func() time.Time `validate:"-"`
}

type DefaultService struct {
	Config Config
}

var _ Service = (*DefaultService)(nil)

func New(cfg Config) (*DefaultService, error) {
	err := validator.Validate(cfg)
	if err != nil {
		err = fmt.Errorf("auth service config error: %w", err)
		return nil, err
	}

	if cfg.SessionExpiry <= 0 {
		cfg.SessionExpiry = DefaultSessionExpiry
	}

	if cfg.SessionPrefix == "" {
		cfg.SessionPrefix = DefaultSessionPrefix
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &DefaultService{Config: cfg}, nil
}

func (s *DefaultService) Register(ctx context.Context, in InputRegister) (out OutRegister, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "authsvc.Register")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrValidation, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.Config.BcryptCost)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	id, err := uid.Int64(s.Config.UIDGen)
	if err != nil {
		return
	}

	created, err := s.Config.UserRepo.Create(ctx, userrepo.InputCreate{
		User: userrepo.User{
			ID:           id,
			Email:        in.Email,
			Name:         in.Name,
			PasswordHash: string(hash),
			CreatedAt:    s.Config.Now().UTC(),
		},
	})
	if errors.Is(err, userrepo.ErrDuplicate) {
		err = fmt.Errorf("%w: %s", ErrEmailTaken, in.Email)
		return
	}

	if err != nil {
		err = fmt.Errorf("create user: %w", err)
		return
	}

	out = OutRegister{
		User: toUser(created.User),
	}
	return
}

func (s *DefaultService) Login(ctx context.Context, in InputLogin) (out OutLogin, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "authsvc.Login")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrValidation, err)
		return
	}

	found, err := s.Config.UserRepo.GetByEmail(ctx, userrepo.InputGetByEmail{Email: in.Email})
	if errors.Is(err, userrepo.ErrNotFound) {
		err = ErrInvalidCredentials
		return
	}

	if err != nil {
		err = fmt.Errorf("get user: %w", err)
		return
	}

	// unknown email and wrong password must be indistinguishable to the caller
	if bcrypt.CompareHashAndPassword([]byte(found.User.PasswordHash), []byte(in.Password)) != nil {
		err = ErrInvalidCredentials
		return
	}

	token, err := newToken()
	if err != nil {
		return
	}

	now := s.Config.Now().UTC()
	session := Session{
		User:     toUser(found.User),
		IssuedAt: now,
		ExpireAt: now.Add(s.Config.SessionExpiry),
	}

	err = s.Config.Sessions.SetExp(ctx, s.sessionKey(token), session, s.Config.SessionExpiry)
	if err != nil {
		err = fmt.Errorf("store session: %w", err)
		return
	}

	ylog.Info(ctx, "user logged in", ylog.KV("user_id", session.User.ID))
	out = OutLogin{
		Token:   token,
		Session: session,
	}
	return
}

func (s *DefaultService) Logout(ctx context.Context, in InputLogout) (out OutLogout, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "authsvc.Logout")
	defer span.End()

	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrValidation, err)
		return
	}

	err = s.Config.Sessions.Delete(ctx, s.sessionKey(in.Token))
	if err != nil {
		err = fmt.Errorf("delete session: %w", err)
		return
	}

	return
}

func (s *DefaultService) Authenticate(ctx context.Context, in InputAuthenticate) (out OutAuthenticate, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "authsvc.Authenticate")
	defer span.End()

	if strings.TrimSpace(in.Token) == "" {
		err = ErrUnauthenticated
		return
	}

	session := Session{}
	err = s.Config.Sessions.GetAs(ctx, s.sessionKey(in.Token), &session)
	if errors.Is(err, cache.ErrKeyNotExist) {
		err = ErrUnauthenticated
		return
	}

	if err != nil {
		err = fmt.Errorf("get session: %w", err)
		return
	}

	// cache backend may keep the key a bit longer than asked
	if !session.ExpireAt.IsZero() && !s.Config.Now().Before(session.ExpireAt) {
		err = ErrUnauthenticated
		return
	}

	out = OutAuthenticate{
		Session: session,
	}
	return
}

// sessionKey never stores the raw token, so dumping the cache does not leak usable tokens.
func (s *DefaultService) sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.Config.SessionPrefix + hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}

	return hex.EncodeToString(b), nil
}

func toUser(u userrepo.User) User {
	return User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}
