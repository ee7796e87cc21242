package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	greenauth "github.com/verdantio/greenauth"
	"github.com/verdantio/greenauth/middleware"
)

// Server wires the engine and the role writer into HTTP handlers.
type Server struct {
	engine *greenauth.Engine
	roles  RoleWriter
	logger zerolog.Logger
	cookie greenauth.CookieConfig
}

// NewServer builds the handler set. The cookie contract comes from the
// engine configuration so transports cannot drift from it.
func NewServer(engine *greenauth.Engine, roles RoleWriter, logger zerolog.Logger) *Server {
	return &Server{
		engine: engine,
		roles:  roles,
		logger: logger,
		cookie: engine.Config().Cookie,
	}
}

// Routes returns a mux with every endpoint registered. Auth endpoints are
// public; role administration sits behind the authentication guard and the
// matching permission gates.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	authed := middleware.Authenticate(s.engine)
	mux.Handle("POST /api/roles",
		authed(middleware.RequirePermission(s.engine, "role_add")(http.HandlerFunc(s.handleRoleCreate))))
	mux.Handle("PUT /api/roles/{id}",
		authed(middleware.RequirePermission(s.engine, "role_update")(http.HandlerFunc(s.handleRoleUpdate))))

	return mux
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, greenauth.ValidationError("Malformed request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, greenauth.ValidationError("Email and password are required"))
		return
	}

	pair, err := s.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logFailure(r, "login", err)
		writeError(w, err)
		return
	}

	s.setRefreshCookie(w, pair)
	writeSuccess(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(s.cookie.Name)
	if err != nil || cookie.Value == "" {
		writeError(w, greenauth.ErrUnauthorized)
		return
	}

	pair, err := s.engine.Refresh(r.Context(), cookie.Value)
	if err != nil {
		s.logFailure(r, "refresh", err)
		writeError(w, err)
		return
	}

	s.setRefreshCookie(w, pair)
	writeSuccess(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Idempotent: an absent or dead cookie still logs out cleanly.
	token := ""
	if cookie, err := r.Cookie(s.cookie.Name); err == nil {
		token = cookie.Value
	}

	if err := s.engine.Logout(r.Context(), token); err != nil {
		s.logFailure(r, "logout", err)
		writeError(w, err)
		return
	}

	s.clearRefreshCookie(w)
	writeSuccess(w, http.StatusOK, struct{}{})
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, pair *greenauth.TokenPair) {
	maxAge := int(time.Until(pair.RefreshExpiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    pair.RefreshToken,
		Path:     s.cookie.Path,
		MaxAge:   maxAge,
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     s.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) logFailure(r *http.Request, op string, err error) {
	evt := s.logger.Debug()
	if greenauth.KindOf(err) == greenauth.KindInternal {
		evt = s.logger.Error()
	}
	evt.Err(err).Str("op", op).Str("path", r.URL.Path).Msg("request failed")
}
