package container

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"github.com/yusufsyaifudin/ylog"
	"go.uber.org/multierr"
)

// RedisConnMaker holds every redis in redisResources, keyed by lower-cased label.
type RedisConnMaker struct {
	ctx           context.Context
	conf          ConfigRedisResources
	redisSingle   map[string]*redis.Client
	redisSentinel map[string]*redis.Client
	redisCluster  map[string]*redis.ClusterClient
	closer        []*labeledCloser
}

// labeledCloser remembers which redis label a client belongs to, so close errors can name it.
type labeledCloser struct {
	label  string
	client redis.UniversalClient
}

func NewRedisConnMaker(ctx context.Context, conf ConfigRedisResources) (*RedisConnMaker, error) {
	instance := &RedisConnMaker{
		ctx:           ctx,
		conf:          conf,
		redisSingle:   map[string]*redis.Client{},
		redisSentinel: map[string]*redis.Client{},
		redisCluster:  map[string]*redis.ClusterClient{},
		closer:        make([]*labeledCloser, 0),
	}

	err := instance.connect()
	if err != nil {
		// close previous opened connection if error happen
		if _err := instance.CloseAll(); _err != nil {
			err = fmt.Errorf("close redis error: %w: %s", err, _err)
		}

		return nil, err
	}

	return instance, nil
}

func (i *RedisConnMaker) connect() error {
	ctx := i.ctx

	for key, connInfo := range i.conf {
		key = normalizeLabel(key)
		if err := validator.Var(key, "required,alphanum"); err != nil {
			err = fmt.Errorf("error connecting to redis key '%s': %w", key, err)
			return err
		}

		if err := validator.Validate(connInfo); err != nil {
			err = fmt.Errorf("invalid redis config '%s': %w", key, err)
			return err
		}

		var redisClient redis.UniversalClient
		switch connInfo.Mode {
		case "single":
			single := redis.NewClient(&redis.Options{
				Addr:     connInfo.Address[0],
				Username: connInfo.Username,
				Password: connInfo.Password,
				DB:       connInfo.DB,
			})

			i.redisSingle[key] = single
			redisClient = single

		case "sentinel":
			sentinel := redis.NewFailoverClient(&redis.FailoverOptions{
				SentinelAddrs: connInfo.Address,
				Username:      connInfo.Username,
				Password:      connInfo.Password,
				DB:            connInfo.DB,
				MasterName:    connInfo.MasterName,
			})

			i.redisSentinel[key] = sentinel
			redisClient = sentinel

		case "cluster":
			// cluster mode is not support DB selection
			cluster := redis.NewClusterClient(&redis.ClusterOptions{
				Addrs:    connInfo.Address,
				Username: connInfo.Username,
				Password: connInfo.Password,
			})

			i.redisCluster[key] = cluster
			redisClient = cluster

		default:
			err := fmt.Errorf("unknown redis mode: %s", connInfo.Mode)
			return err
		}

		if redisClient == nil {
			return fmt.Errorf("redis client %s is nil", key)
		}

		// registered before ping, so failed connection is still closed by caller
		i.closer = append(i.closer, &labeledCloser{label: key, client: redisClient})

		err := redisClient.Ping(ctx).Err()
		if err != nil {
			err = fmt.Errorf("error ping redis %s: %w", key, err)
			return err
		}

		ylog.Debug(ctx, fmt.Sprintf("redis: %s connected in %s mode", key, connInfo.Mode))
	}

	return nil
}

func (i *RedisConnMaker) GetSingle(key string) (*redis.Client, error) {
	key = normalizeLabel(key)
	v, ok := i.redisSingle[key]
	if !ok {
		return nil, fmt.Errorf("key %s is not found on any redis with single architecture", key)
	}

	return v, nil
}

func (i *RedisConnMaker) GetSentinel(key string) (*redis.Client, error) {
	key = normalizeLabel(key)
	v, ok := i.redisSentinel[key]
	if !ok {
		return nil, fmt.Errorf("key %s is not found on any redis with sentinel architecture", key)
	}

	return v, nil
}

func (i *RedisConnMaker) GetCluster(key string) (*redis.ClusterClient, error) {
	key = normalizeLabel(key)
	v, ok := i.redisCluster[key]
	if !ok {
		return nil, fmt.Errorf("key %s is not found on any redis with cluster architecture", key)
	}

	return v, nil
}

func (i *RedisConnMaker) Get(key string) (v redis.UniversalClient, err error) {
	v, err = i.GetSingle(key)
	if err == nil {
		return v, nil
	}

	v, err = i.GetSentinel(key)
	if err == nil {
		return v, nil
	}

	v, err = i.GetCluster(key)
	if err == nil {
		return v, nil
	}

	return nil, fmt.Errorf("key %s is not found in any redis topology", key)
}

func (i *RedisConnMaker) CloseAll() error {
	ctx := i.ctx

	ylog.Debug(ctx, "redis: trying to close")

	var err error
	for _, closer := range i.closer {
		if closer == nil || closer.client == nil {
			continue
		}

		if e := closer.client.Close(); e != nil {
			err = multierr.Append(err, fmt.Errorf("close redis %s: %w", closer.label, e))
			continue
		}

		ylog.Debug(ctx, fmt.Sprintf("redis: %s success to close", closer.label))
	}

	if err != nil {
		ylog.Error(ctx, "redis: some error occurred when closing dep", ylog.KV("error", err))
	}

	return err
}
