package container

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/dispatchsvc"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "config.yml"
	DefaultEnvFile    = ".env"

	defaultHTTPPort      = 3000
	defaultPrimaryDir    = "pdfs"
	defaultSecondaryDir  = "pdfs1"
	defaultUploadDir     = "uploads"
	defaultMaxUploadSize = 10 << 20
)

// Environment variables which override mail section, so the secret does not need to be written in config file.
const (
	EnvEmailID       = "EMAIL_ID"
	EnvEmailPassword = "EMAIL_PASSWORD"
	EnvSMTPHost      = "SMTP_HOST"
	EnvSMTPPort      = "SMTP_PORT"
)

// ConfigHTTPServer struct for HTTP ConfigTransport configuration
type ConfigHTTPServer struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// ConfigTransport is a configuration for Admin ConfigTransport: HTTP, gRPC or anything
type ConfigTransport struct {
	HTTP ConfigHTTPServer `yaml:"http"`
}

type ConfigTracing struct {
	Disable           bool   `yaml:"disable"`
	CollectorEndpoint string `yaml:"collectorEndpoint"`
	Environment       string `yaml:"environment"`
}

type ConfigLog struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

type ConfigGoSqlDb struct {
	Debug bool   `yaml:"debug"`
	DSN   string `yaml:"dsn"` // Data Source Name
}

type ConfigDatabaseResource struct {
	Disable bool   `yaml:"disable"`
	Driver  string `yaml:"driver"` // only postgres for now

	Postgres ConfigGoSqlDb `yaml:"postgres"`
}

// ConfigDatabaseResources redefine config
type ConfigDatabaseResources map[string]ConfigDatabaseResource

type ConfigRedisResource struct {
	Mode       string   `yaml:"mode" validate:"required,oneof=single sentinel cluster"`
	Address    []string `yaml:"address" validate:"required,min=1,dive,required"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	DB         int      `yaml:"db"`
	MasterName string   `yaml:"masterName"`
}

type ConfigRedisResources map[string]ConfigRedisResource

// ConfigMail is the smtp account used as sender. DryRun writes rendered mail to stdout instead.
type ConfigMail struct {
	DryRun             bool   `yaml:"dryRun"`
	Protocol           string `yaml:"protocol"`
	ServerHost         string `yaml:"serverHost"`
	ServerPort         int    `yaml:"serverPort"`
	TLSMode            string `yaml:"tlsMode"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	AuthIdentity       string `yaml:"authIdentity"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`

	// Sender is the From address, default to Username.
	Sender string `yaml:"sender"`
}

type ConfigStorage struct {
	PrimaryDir    string `yaml:"primaryDir"`
	SecondaryDir  string `yaml:"secondaryDir"`
	UploadDir     string `yaml:"uploadDir"`
	MaxUploadSize int64  `yaml:"maxUploadSize"`
}

type ConfigServiceDocument struct {
	DBLabel string `yaml:"dbLabel"`
}

type ConfigServiceUser struct {
	DBLabel string `yaml:"dbLabel"`
}

type ConfigServiceSession struct {
	// Cache is inmemory or redis.
	Cache      string        `yaml:"cache"`
	RedisLabel string        `yaml:"redisLabel"`
	Expiry     time.Duration `yaml:"expiry"`
	Prefix     string        `yaml:"prefix"`
}

type ConfigServiceDispatch struct {
	MinSendInterval time.Duration               `yaml:"minSendInterval"`
	Template        dispatchsvc.MessageTemplate `yaml:"template"`
}

// ConfigServiceUID pins sonyflake machine id. Nil derives it from the private IPv4 address of the host.
type ConfigServiceUID struct {
	MachineID *uint16 `yaml:"machineID"`
}

type ConfigServices struct {
	UID      ConfigServiceUID      `yaml:"uid"`
	Document ConfigServiceDocument `yaml:"document"`
	User     ConfigServiceUser     `yaml:"user"`
	Session  ConfigServiceSession  `yaml:"session"`
	Dispatch ConfigServiceDispatch `yaml:"dispatch"`
}

// Config contains application config
type Config struct {
	Transport         ConfigTransport         `yaml:"transport"`
	Tracing           ConfigTracing           `yaml:"tracing"`
	Log               ConfigLog               `yaml:"log"`
	DatabaseResources ConfigDatabaseResources `yaml:"databaseResources"`
	RedisResources    ConfigRedisResources    `yaml:"redisResources"`
	Mail              ConfigMail              `yaml:"mail"`
	Storage           ConfigStorage           `yaml:"storage"`
	Services          ConfigServices          `yaml:"services"`
}

// LoadConfig reads YAML file in path, then apply environment variables (optionally from .env) on top of it.
// Empty path means DefaultConfigFile.
func LoadConfig(path string) (cfg Config, err error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultConfigFile
	}

	fileContent, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("error read file config %s: %w", path, err)
		return
	}

	cfg, err = ParseConfig(fileContent)
	if err != nil {
		err = fmt.Errorf("error parse file config %s: %w", path, err)
		return
	}

	// .env is optional, variables already set in environment are not overwritten
	err = godotenv.Load(DefaultEnvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		err = fmt.Errorf("error load %s: %w", DefaultEnvFile, err)
		return
	}

	err = cfg.applyEnv(os.LookupEnv)
	return
}

// ParseConfig decodes YAML content and fills the defaults.
func ParseConfig(content []byte) (cfg Config, err error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(false)
	err = dec.Decode(&cfg)
	if err != nil {
		return
	}

	cfg.setDefaults()
	return
}

func (c *Config) setDefaults() {
	if c.Transport.HTTP.Port <= 0 {
		c.Transport.HTTP.Port = defaultHTTPPort
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Mail.Protocol == "" {
		c.Mail.Protocol = "smtp"
	}

	if c.Storage.PrimaryDir == "" {
		c.Storage.PrimaryDir = defaultPrimaryDir
	}

	if c.Storage.SecondaryDir == "" {
		c.Storage.SecondaryDir = defaultSecondaryDir
	}

	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = defaultUploadDir
	}

	if c.Storage.MaxUploadSize <= 0 {
		c.Storage.MaxUploadSize = defaultMaxUploadSize
	}

	if c.Services.Session.Cache == "" {
		c.Services.Session.Cache = "inmemory"
	}

	if c.Services.Dispatch.MinSendInterval <= 0 {
		c.Services.Dispatch.MinSendInterval = dispatchsvc.DefaultMinSendInterval
	}
}

func (c *Config) applyEnv(lookup func(key string) (string, bool)) error {
	if v, ok := lookup(EnvEmailID); ok && v != "" {
		c.Mail.Username = v
	}

	if v, ok := lookup(EnvEmailPassword); ok && v != "" {
		c.Mail.Password = v
	}

	if v, ok := lookup(EnvSMTPHost); ok && v != "" {
		c.Mail.ServerHost = v
	}

	if v, ok := lookup(EnvSMTPPort); ok && v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("env %s must be a number: %w", EnvSMTPPort, err)
		}

		c.Mail.ServerPort = port
	}

	return nil
}

// SenderAddress is the From address of every outgoing mail.
func (m ConfigMail) SenderAddress() string {
	if strings.TrimSpace(m.Sender) != "" {
		return strings.TrimSpace(m.Sender)
	}

	return strings.TrimSpace(m.Username)
}
