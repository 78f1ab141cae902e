package container

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/authsvc"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/dispatchsvc"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/docsvc"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/pdfresolver"
	"github.com/yusufsyaifudin/pdfmailer/pkg/cache"
	"github.com/yusufsyaifudin/pdfmailer/pkg/mailclient"
	"github.com/yusufsyaifudin/pdfmailer/pkg/uid"
)

const (
	sessionCacheInMemory = "inmemory"
	sessionCacheRedis    = "redis"
)

// uidEpoch must never change once ids are issued.
var uidEpoch = time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)

// RedisProvider returns redis client by label, it is satisfied by RedisConnMaker.
type RedisProvider interface {
	Get(key string) (redis.UniversalClient, error)
}

type Services interface {
	UIDGen() uid.UID
	Dispatch() dispatchsvc.Service
	Document() docsvc.Service
	Auth() authsvc.Service
}

type ServicesImpl struct {
	uidGen   uid.UID
	dispatch dispatchsvc.Service
	document docsvc.Service
	auth     authsvc.Service
}

var _ Services = (*ServicesImpl)(nil)

// SetupServices wires all services. redisConn may be nil when session cache is in memory.
func SetupServices(cfg Config, repos Repositories, redisConn RedisProvider) (svc *ServicesImpl, err error) {
	if repos == nil {
		err = fmt.Errorf("nil repositories on services preparation")
		return
	}

	uidGen, err := NewUIDGenerator(cfg.Services.UID)
	if err != nil {
		err = fmt.Errorf("uid generator: %w", err)
		return
	}

	transport, err := NewMailTransport(cfg.Mail, os.Stdout)
	if err != nil {
		return
	}

	// ** dispatch of pdf found in primary and secondary directory
	dispatchService, err := NewDispatchService(cfg, transport)
	if err != nil {
		return
	}

	// ** stored document
	docRepo, err := repos.DocRepo(cfg.Services.Document.DBLabel)
	if err != nil {
		err = fmt.Errorf("services cannot get document repo: %w", err)
		return
	}

	docService, err := docsvc.New(docsvc.Config{
		Repo:            docRepo,
		UIDGen:          uidGen,
		Transport:       transport,
		Sender:          cfg.Mail.SenderAddress(),
		UploadDir:       cfg.Storage.UploadDir,
		MaxUploadSize:   cfg.Storage.MaxUploadSize,
		MinSendInterval: cfg.Services.Dispatch.MinSendInterval,
	})
	if err != nil {
		err = fmt.Errorf("services cannot prepare document service: %w", err)
		return
	}

	// ** users and sessions
	userRepo, err := repos.UserRepo(cfg.Services.User.DBLabel)
	if err != nil {
		err = fmt.Errorf("services cannot get user repo: %w", err)
		return
	}

	sessions, err := NewSessionCache(cfg.Services.Session, redisConn)
	if err != nil {
		return
	}

	authService, err := authsvc.New(authsvc.Config{
		UserRepo:      userRepo,
		UIDGen:        uidGen,
		Sessions:      sessions,
		SessionExpiry: cfg.Services.Session.Expiry,
		SessionPrefix: cfg.Services.Session.Prefix,
	})
	if err != nil {
		err = fmt.Errorf("services cannot prepare auth service: %w", err)
		return
	}

	svc = &ServicesImpl{
		uidGen:   uidGen,
		dispatch: dispatchService,
		document: docService,
		auth:     authService,
	}

	return svc, nil
}

// NewMailTransport returns real smtp transport, or the dry-run one writing to out when mail.dryRun is set.
// NewUIDGenerator returns sonyflake starting at uidEpoch, with machine id from cfg when it is set.
func NewUIDGenerator(cfg ConfigServiceUID) (uid.UID, error) {
	opts := make([]uid.Option, 0, 1)
	if cfg.MachineID != nil {
		opts = append(opts, uid.WithMachineID(*cfg.MachineID))
	}

	return uid.NewSonyflake(uidEpoch, opts...)
}

func NewMailTransport(cfg ConfigMail, out io.Writer) (mailclient.Transport, error) {
	if cfg.DryRun {
		return mailclient.NewNoop(out), nil
	}

	transport, err := mailclient.NewSmtp(&mailclient.SmtpMailerConfig{
		EmailCredential: &mailclient.EmailCredential{
			Protocol:           cfg.Protocol,
			ServerHost:         cfg.ServerHost,
			ServerPort:         cfg.ServerPort,
			TLSMode:            mailclient.TLSMode(strings.ToLower(cfg.TLSMode)),
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			AuthIdentity:       cfg.AuthIdentity,
			Username:           cfg.Username,
			Password:           cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mail transport: %w", err)
	}

	return transport, nil
}

// NewDispatchService does not need any database, so it is also used directly by send-batch command.
func NewDispatchService(cfg Config, transport mailclient.Transport) (*dispatchsvc.DefaultService, error) {
	svc, err := dispatchsvc.New(dispatchsvc.Config{
		Resolver:        pdfresolver.New(),
		Transport:       transport,
		Sender:          cfg.Mail.SenderAddress(),
		PrimaryDir:      cfg.Storage.PrimaryDir,
		SecondaryDir:    cfg.Storage.SecondaryDir,
		Template:        cfg.Services.Dispatch.Template,
		MinSendInterval: cfg.Services.Dispatch.MinSendInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("services cannot prepare dispatch service: %w", err)
	}

	return svc, nil
}

// NewSessionCache returns the store of login sessions.
func NewSessionCache(cfg ConfigServiceSession, redisConn RedisProvider) (cache.Cache, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Cache)) {
	case "", sessionCacheInMemory:
		return cache.NewInMemory()

	case sessionCacheRedis:
		if redisConn == nil {
			return nil, fmt.Errorf("session cache is redis but no redis resource is connected")
		}

		client, err := redisConn.Get(cfg.RedisLabel)
		if err != nil {
			return nil, fmt.Errorf("session cache: %w", err)
		}

		return cache.NewRedis(cache.RedisConfig{DB: client})

	default:
		return nil, fmt.Errorf("unknown session cache '%s'", cfg.Cache)
	}
}

func (s *ServicesImpl) UIDGen() uid.UID {
	return s.uidGen
}

func (s *ServicesImpl) Dispatch() dispatchsvc.Service {
	return s.dispatch
}

func (s *ServicesImpl) Document() docsvc.Service {
	return s.document
}

func (s *ServicesImpl) Auth() authsvc.Service {
	return s.auth
}
