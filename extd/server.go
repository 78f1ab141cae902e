package extd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/satori/uuid"
	"github.com/yusufsyaifudin/pdfmailer/container"
	"github.com/yusufsyaifudin/pdfmailer/pkg/tracer"
	"github.com/yusufsyaifudin/pdfmailer/transport/restapi"
	"github.com/yusufsyaifudin/ylog"
	jaegerPropagator "go.opentelemetry.io/contrib/propagators/jaeger"
	"go.opentelemetry.io/contrib/propagators/ot"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	defaultJaegerEndpoint = "http://localhost:14268/api/traces"
	shutdownTimeout       = 30 * time.Second
)

// RunServer located in extd (extended) to add capability extends backend if you want to create custom backend.
func RunServer(ctx context.Context, cfg container.Config) (err error) {
	if ctx == nil {
		ctx = context.TODO()
	}

	ctx = SetupLog(ctx, cfg.Log.Level)

	shutdownTracer, err := setupTracing(ctx, cfg.Tracing)
	if err != nil {
		ylog.Error(ctx, "cannot setup tracing", ylog.KV("error", err))
		return
	}

	defer shutdownTracer()

	// ** pdf directories
	err = EnsureDirs(cfg.Storage)
	if err != nil {
		ylog.Error(ctx, "storage preparation: failed", ylog.KV("error", err))
		return
	}

	// ** setup repositories
	ylog.Info(ctx, "container preparation: starting")
	var repositories container.Repositories
	repositories, err = container.SetupRepositories(cfg.DatabaseResources)
	defer func() {
		ylog.Info(ctx, "closing container: starting")
		if repositories == nil {
			ylog.Info(ctx, "closing container: no need to close")
			return
		}

		if _err := repositories.Close(); _err != nil {
			ylog.Error(ctx, "closing container: failed", ylog.KV("error", _err))
		}

		ylog.Info(ctx, "closing container: done")
	}()

	if err != nil {
		ylog.Error(ctx, "container preparation: failed", ylog.KV("error", err))
		return
	}

	// redis is only connected when configured, the interface must stay nil otherwise
	var redisProvider container.RedisProvider
	if len(cfg.RedisResources) > 0 {
		var redisConn *container.RedisConnMaker
		redisConn, err = container.NewRedisConnMaker(ctx, cfg.RedisResources)
		if err != nil {
			ylog.Error(ctx, "redis preparation: failed", ylog.KV("error", err))
			return
		}

		defer func() {
			if _err := redisConn.CloseAll(); _err != nil {
				ylog.Error(ctx, "closing redis: failed", ylog.KV("error", _err))
			}
		}()

		redisProvider = redisConn
	}

	ylog.Info(ctx, "container preparation: done")

	// ** START SERVICES using configured repositories
	ylog.Info(ctx, "services preparation: starting")
	services, err := container.SetupServices(cfg, repositories, redisProvider)
	if err != nil {
		ylog.Error(ctx, "service preparation: failed", ylog.KV("error", err))
		return
	}

	// ** HTTP TRANSPORT
	ylog.Info(ctx, "transport preparation: starting")
	serverConfig := restapi.Config{
		DispatchService: services.Dispatch(),
		DocService:      services.Document(),
		AuthService:     services.Auth(),
		PrimaryDir:      cfg.Storage.PrimaryDir,
		MaxUploadSize:   cfg.Storage.MaxUploadSize,
		RequestTimeout:  cfg.Transport.HTTP.RequestTimeout,
	}

	ylog.Info(ctx, "http transport: starting")
	server, err := restapi.NewHTTPTransport(serverConfig)
	if err != nil {
		ylog.Error(ctx, "http transport: failed", ylog.KV("error", err))
		return
	}

	httpPort := fmt.Sprintf(":%d", cfg.Transport.HTTP.Port)
	h2s := &http2.Server{}
	httpServer := &http.Server{
		Addr:              httpPort,
		Handler:           h2c.NewHandler(server.Server(), h2s), // HTTP/2 Cleartext handler
		ReadHeaderTimeout: 10 * time.Second,
	}

	var apiErrChan = make(chan error, 1)
	go func() {
		ylog.Info(ctx, fmt.Sprintf("http transport: done running on port %d", cfg.Transport.HTTP.Port))
		apiErrChan <- httpServer.ListenAndServe()
	}()

	ylog.Info(ctx, "system: up and running...")

	// ** listen for sigterm signal
	var signalChan = make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-signalChan:
		ylog.Info(ctx, "system: exiting...")
		ylog.Info(ctx, "http transport: exiting...")

		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if _err := httpServer.Shutdown(shutdownCtx); _err != nil {
			ylog.Error(ctx, "http transport: ", ylog.KV("error", _err))
		}

	case _err := <-apiErrChan:
		if _err != nil && !errors.Is(_err, http.ErrServerClosed) {
			ylog.Error(ctx, "http transport: error", ylog.KV("error", _err))
			err = _err
		}
	}

	return
}

// EnsureDirs creates primary, secondary and upload directory when missing.
func EnsureDirs(storage container.ConfigStorage) error {
	for _, dir := range []string{storage.PrimaryDir, storage.SecondaryDir, storage.UploadDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	}

	return nil
}

// setupTracing registers jaeger exporter as global tracer provider, and the OT + jaeger propagator.
// When tracing is disabled, the default no-op provider of otel is kept.
func setupTracing(ctx context.Context, cfg container.ConfigTracing) (shutdown func(), err error) {
	shutdown = func() {}

	// register ot propagator
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		&ot.OT{},
		&jaegerPropagator.Jaeger{},
	))

	if cfg.Disable {
		ylog.Info(ctx, "tracing: disabled")
		return
	}

	endpoint := cfg.CollectorEndpoint
	if endpoint == "" {
		endpoint = defaultJaegerEndpoint
	}

	exp, err := jaeger.New(
		jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)),
	)
	if err != nil {
		err = fmt.Errorf("cannot setup jaeger exporter: %w", err)
		return
	}

	tp := tracer.InitTraceProvider(exp, cfg.Environment)
	shutdown = func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _err := tp.Shutdown(shutdownCtx); _err != nil {
			ylog.Error(ctx, "tracing: shutdown failed", ylog.KV("error", _err))
		}
	}

	return
}

// SetupLog set the global JSON logger at level, and returns ctx carrying system trace data.
func SetupLog(ctx context.Context, level string) context.Context {
	zapLevel := zapcore.InfoLevel
	if err := zapLevel.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:        "ts",
			MessageKey:     "msg",
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
			LineEnding:     zapcore.DefaultLineEnding,
			LevelKey:       "level",
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
		}),
		zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), // pipe to multiple writer
		zapLevel,
	)

	zapLog := zap.New(core)

	propagateData := tracer.LogData{
		RemoteAddr: "system",
		TraceID:    uuid.NewV4().String(),
	}

	traceLog, err := ylog.NewTracer(propagateData, ylog.WithTag("tracer"))
	if err != nil {
		log.Fatalf("error prepare tracer system data: %s", err)
		return ctx
	}

	// inject context
	ctx = ylog.Inject(ctx, traceLog)

	// ** set global logger
	ylog.SetGlobalLogger(ylog.NewZap(zapLog))

	return ctx
}
