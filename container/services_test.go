package container

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sony/sonyflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusufsyaifudin/pdfmailer/pkg/cache"
	"github.com/yusufsyaifudin/pdfmailer/pkg/mailclient"
)

type redisByLabel map[string]redis.UniversalClient

func (r redisByLabel) Get(key string) (redis.UniversalClient, error) {
	client, ok := r[key]
	if !ok {
		return nil, fmt.Errorf("key %s is not found in any redis topology", key)
	}

	return client, nil
}

func TestNewUIDGenerator_MachineID(t *testing.T) {
	machineID := uint16(9)
	gen, err := NewUIDGenerator(ConfigServiceUID{MachineID: &machineID})
	require.NoError(t, err)

	id, err := gen.NextID()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), sonyflake.Decompose(id)["machine-id"])
}

func TestNewSessionCache_InMemory(t *testing.T) {
	store, err := NewSessionCache(ConfigServiceSession{Cache: "InMemory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &cache.InMemory{}, store)
}

func TestNewSessionCache_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewSessionCache(ConfigServiceSession{Cache: "redis", RedisLabel: "session"}, redisByLabel{"session": client})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.SetExp(ctx, "k", map[string]string{"a": "b"}, time.Minute))

	var out map[string]string
	require.NoError(t, store.GetAs(ctx, "k", &out))
	assert.Equal(t, "b", out["a"])
}

func TestNewSessionCache_Invalid(t *testing.T) {
	_, err := NewSessionCache(ConfigServiceSession{Cache: "redis"}, nil)
	assert.Error(t, err)

	_, err = NewSessionCache(ConfigServiceSession{Cache: "redis", RedisLabel: "missing"}, redisByLabel{})
	assert.Error(t, err)

	_, err = NewSessionCache(ConfigServiceSession{Cache: "memcached"}, nil)
	assert.Error(t, err)
}

func TestNewMailTransport(t *testing.T) {
	out := &bytes.Buffer{}
	transport, err := NewMailTransport(ConfigMail{DryRun: true}, out)
	require.NoError(t, err)
	assert.IsType(t, &mailclient.NoopMailer{}, transport)

	transport, err = NewMailTransport(ConfigMail{
		Protocol:   "smtp",
		ServerHost: "smtp.example.com",
		ServerPort: 587,
		TLSMode:    "STARTTLS",
		Username:   "sender@example.com",
		Password:   "secret",
	}, out)
	require.NoError(t, err)
	assert.IsType(t, &mailclient.SmtpMailer{}, transport)

	_, err = NewMailTransport(ConfigMail{Protocol: "smtp"}, out)
	assert.Error(t, err)
}

func TestNewDispatchService(t *testing.T) {
	cfg, err := ParseConfig([]byte("mail:\n  username: sender@example.com\n"))
	require.NoError(t, err)

	svc, err := NewDispatchService(cfg, mailclient.NewNoop(nil))
	require.NoError(t, err)
	assert.Equal(t, "pdfs", svc.Config.PrimaryDir)
	assert.Equal(t, "sender@example.com", svc.Config.Sender)

	cfg.Mail.Username = ""
	_, err = NewDispatchService(cfg, mailclient.NewNoop(nil))
	assert.Error(t, err)
}
