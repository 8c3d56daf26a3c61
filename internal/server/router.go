package server

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/esps-console/internal/server/handlers"
	"github.com/iudanet/esps-console/internal/server/lockout"
	"github.com/iudanet/esps-console/internal/server/middleware"
	"github.com/iudanet/esps-console/internal/server/storage"
)

// Отдельный, более жесткий лимит на подбор паролей с одного адреса
const (
	loginRate  = 0.5
	loginBurst = 5
)

// Deps - зависимости HTTP слоя backend
type Deps struct {
	Logger       *slog.Logger
	Users        storage.UserStorage
	Tokens       storage.TokenStorage
	Certificates storage.CertificateStorage
	Limiter      lockout.Limiter
	DB           handlers.Pinger
	Version      string
	JWT          handlers.JWTConfig
	RateLimit    float64
	RateBurst    int
}

// NewRouter собирает маршруты backend и цепочку middleware:
// recovery -> logging -> rate limit -> (auth) -> handler.
// Возвращаемая функция останавливает фоновые goroutine rate limiter-а.
func NewRouter(d Deps) (http.Handler, func()) {
	authHandler := handlers.NewAuthHandler(d.Logger, d.Users, d.Tokens, d.Limiter, d.JWT)
	certHandler := handlers.NewCertificateHandler(d.Logger, d.Certificates)
	healthHandler := handlers.NewHealthHandler(d.Logger, d.DB, d.Version)

	protected := middleware.AuthMiddleware(d.Logger, d.JWT, d.Tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.Handle("GET /auth/me", protected(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST /auth/logout", protected(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /{direction}/{source}", protected(http.HandlerFunc(certHandler.List)))
	mux.Handle("GET /{direction}/{source}/{id}/{field}", protected(http.HandlerFunc(certHandler.Document)))

	var limits []middleware.PathRateLimit
	if d.RateLimit > 0 {
		limits = append(limits, middleware.PathRateLimit{Path: "/auth/login", Rate: loginRate, Burst: loginBurst})
	}
	rateLimit, stop := middleware.RateLimitMiddleware(d.Logger, d.RateLimit, d.RateBurst, limits...)

	var h http.Handler = mux
	h = rateLimit(h)
	h = middleware.LoggingWithSkip(d.Logger, []string{"/health"})(h)
	h = middleware.RecoveryMiddleware(d.Logger)(h)

	return h, stop
}
