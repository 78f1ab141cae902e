package restapi

import (
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/yusufsyaifudin/pdfmailer/assets"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/authsvc"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/dispatchsvc"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/docsvc"
	"github.com/yusufsyaifudin/pdfmailer/pkg/respbuilder"
	"github.com/yusufsyaifudin/pdfmailer/pkg/tracer"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"github.com/yusufsyaifudin/pdfmailer/transport/restapi/handlerauth"
	"github.com/yusufsyaifudin/pdfmailer/transport/restapi/handleremail"
	"github.com/yusufsyaifudin/pdfmailer/transport/restapi/handlerpdf"
	"go.opentelemetry.io/otel"
)

const DefaultRequestTimeout = 10 * time.Minute

type Config struct {
	DispatchService dispatchsvc.Service `validate:"required"`
	DocService      docsvc.Service      `validate:"required"`
	AuthService     authsvc.Service     `validate:"required"`

	// PrimaryDir is served read-only under /pdfs.
	PrimaryDir    string `validate:"required"`
	MaxUploadSize int64  `validate:"required,min=1"`
	MaxCSVSize    int64  `validate:"min=0"`

	// RequestTimeout bounds each request context, zero means DefaultRequestTimeout.
	RequestTimeout time.Duration `validate:"-"`
}

type DefaultHTTP struct {
	router *chi.Mux
}

func NewHTTPTransport(cfg Config) (*DefaultHTTP, error) {
	if err := validator.Validate(cfg); err != nil {
		return nil, fmt.Errorf("http transport cfg error: %w", err)
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	handlerEmail, err := handleremail.NewHandler(handleremail.HandlerConfig{
		Dispatch:   cfg.DispatchService,
		MaxCSVSize: cfg.MaxCSVSize,
	})
	if err != nil {
		return nil, err
	}

	handlerAuth, err := handlerauth.NewHandler(handlerauth.HandlerConfig{
		AuthService: cfg.AuthService,
	})
	if err != nil {
		return nil, err
	}

	handlerPDF, err := handlerpdf.NewHandler(handlerpdf.HandlerConfig{
		DocService:    cfg.DocService,
		MaxUploadSize: cfg.MaxUploadSize,
	})
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()

	skip := func(r *http.Request) bool {
		p := strings.TrimSpace(path.Clean(r.URL.Path))
		switch p {
		case "/health",
			"/ping":
			return true
		}

		return strings.HasPrefix(p, "/swaggerui") || strings.HasPrefix(p, "/pdfs")
	}

	router.Use(middleware.StripSlashes)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	router.Use(func(next http.Handler) http.Handler {
		return tracer.Middleware(tracer.MiddlewareConfig{
			TracerName:     "github.com/yusufsyaifudin/pdfmailer",
			ServiceName:    assets.ServiceName,
			SkipFunc:       skip,
			TracerProvider: otel.GetTracerProvider(),    // global tracer provider
			TextPropagator: otel.GetTextMapPropagator(), // use global text map propagator
		}, next)
	})

	// add trace id and also log request response
	router.Use(func(next http.Handler) http.Handler {
		return requestLogger(skip, cfg.RequestTimeout, next)
	})

	health := func(w http.ResponseWriter, r *http.Request) {
		respbuilder.WriteJSON(http.StatusOK, w, r, respbuilder.Message(r.Context(), "OK"))
	}

	router.Get("/health", health)
	router.Get("/ping", health)

	swaggerDir, _ := fs.Sub(assets.SwaggerUI, ".")
	router.Mount("/swaggerui", http.FileServer(http.FS(swaggerDir)))

	// primary pdf directory, file by name only
	router.Mount("/pdfs", http.StripPrefix("/pdfs", http.FileServer(filesOnly{http.Dir(cfg.PrimaryDir)})))

	router.Route("/api/email", func(r chi.Router) {
		r.Post("/send", handlerEmail.SendPlain())
		r.Post("/send-pdf", handlerEmail.SendPDF())
		r.Post("/batch", handlerEmail.Batch())
		r.Post("/csv/import", handlerEmail.CSVImport())
		r.Post("/csv/export", handlerEmail.CSVExport())
	})

	router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", handlerAuth.Register())
		r.Post("/login", handlerAuth.Login())
		r.Post("/logout", handlerAuth.Logout())
	})

	// Resource: stored pdf, only for logged-in user
	router.Route("/api/pdf", func(r chi.Router) {
		r.Use(handlerAuth.Authenticated)
		r.Post("/upload", handlerPDF.Upload())
		r.Post("/send", handlerPDF.Send())
		r.Get("/", handlerPDF.List())
		r.Get("/{id}", handlerPDF.Get())
		r.Delete("/{id}", handlerPDF.Delete())
	})

	instance := &DefaultHTTP{
		router: router,
	}

	return instance, nil
}

// Server .
func (a *DefaultHTTP) Server() http.Handler {
	return a.router
}
