package handlerauth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/authsvc"
	"github.com/yusufsyaifudin/pdfmailer/pkg/respbuilder"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"github.com/yusufsyaifudin/pdfmailer/transport/restapi/httptyped"
	"github.com/yusufsyaifudin/ylog"
)

type HandlerConfig struct {
	AuthService authsvc.Service `validate:"required"`
}

type Handler struct {
	Config HandlerConfig
}

func NewHandler(conf HandlerConfig) (*Handler, error) {
	err := validator.Validate(conf)
	if err != nil {
		return nil, err
	}

	return &Handler{Config: conf}, nil
}

type RegisterReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type RegisterResp struct {
	User httptyped.User `json:"user"`
}

// Register creates new user.
// Path         : POST /api/auth/register
// Request Body : RegisterReq
// Response     : RegisterResp
func (h *Handler) Register() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var reqBody RegisterReq
		if err := decodeJSON(r, &reqBody); err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return
		}

		out, err := h.Config.AuthService.Register(ctx, authsvc.InputRegister{
			Email:    reqBody.Email,
			Name:     reqBody.Name,
			Password: reqBody.Password,
		})

		switch {
		case errors.Is(err, authsvc.ErrValidation):
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return

		case errors.Is(err, authsvc.ErrEmailTaken):
			resp := respbuilder.Error(ctx, respbuilder.ErrDuplicateEntries, err)
			respbuilder.WriteJSON(http.StatusConflict, w, r, resp)
			return

		case err != nil:
			resp := respbuilder.Error(ctx, respbuilder.ErrUnhandled, err)
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, resp)
			return
		}

		resp := respbuilder.Success(ctx, RegisterResp{
			User: httptyped.UserFromSvc(out.User),
		})
		respbuilder.WriteJSON(http.StatusCreated, w, r, resp)
	}
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResp struct {
	Token    string         `json:"token"`
	ExpireAt time.Time      `json:"expireAt"`
	User     httptyped.User `json:"user"`
}

// Login issues bearer token.
// Path         : POST /api/auth/login
// Request Body : LoginReq
// Response     : LoginResp
func (h *Handler) Login() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var reqBody LoginReq
		if err := decodeJSON(r, &reqBody); err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return
		}

		out, err := h.Config.AuthService.Login(ctx, authsvc.InputLogin{
			Email:    reqBody.Email,
			Password: reqBody.Password,
		})

		switch {
		case errors.Is(err, authsvc.ErrValidation):
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return

		case errors.Is(err, authsvc.ErrInvalidCredentials):
			resp := respbuilder.Error(ctx, respbuilder.ErrUnauthorized, err)
			respbuilder.WriteJSON(http.StatusUnauthorized, w, r, resp)
			return

		case err != nil:
			resp := respbuilder.Error(ctx, respbuilder.ErrUnhandled, err)
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, resp)
			return
		}

		resp := respbuilder.Success(ctx, LoginResp{
			Token:    out.Token,
			ExpireAt: out.Session.ExpireAt,
			User:     httptyped.UserFromSvc(out.Session.User),
		})
		respbuilder.WriteJSON(http.StatusOK, w, r, resp)
	}
}

// Logout revoke the bearer token of current request.
// Path         : POST /api/auth/logout
// Response     : respbuilder.HTTPMessage
func (h *Handler) Logout() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := BearerToken(r)
		if token == "" {
			resp := respbuilder.Error(ctx, respbuilder.ErrUnauthorized, authsvc.ErrUnauthenticated)
			respbuilder.WriteJSON(http.StatusUnauthorized, w, r, resp)
			return
		}

		_, err := h.Config.AuthService.Logout(ctx, authsvc.InputLogout{Token: token})
		if err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrUnhandled, err)
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, resp)
			return
		}

		respbuilder.WriteJSON(http.StatusOK, w, r, respbuilder.Message(ctx, "Logged out"))
	}
}

// Authenticated rejects request without valid bearer token, and injects the session for next handler.
func (h *Handler) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		out, err := h.Config.AuthService.Authenticate(ctx, authsvc.InputAuthenticate{Token: BearerToken(r)})
		if errors.Is(err, authsvc.ErrUnauthenticated) {
			resp := respbuilder.Error(ctx, respbuilder.ErrUnauthorized, err)
			respbuilder.WriteJSON(http.StatusUnauthorized, w, r, resp)
			return
		}

		if err != nil {
			ylog.Error(ctx, "authenticate request failed", ylog.KV("error", err))
			resp := respbuilder.Error(ctx, respbuilder.ErrUnhandled, err)
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, resp)
			return
		}

		next.ServeHTTP(w, r.WithContext(authsvc.Inject(ctx, out.Session)))
	})
}

// BearerToken returns token from "Authorization: Bearer <token>", empty when absent.
func BearerToken(r *http.Request) string {
	const prefix = "bearer "
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(header[len(prefix):])
}

func decodeJSON(r *http.Request, out interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("request body is nil")
	}

	defer func() {
		if _err := r.Body.Close(); _err != nil {
			ylog.Error(r.Context(), "cannot close request body", ylog.KV("error", _err))
		}
	}()

	return json.NewDecoder(r.Body).Decode(out)
}
