package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/jobnudge/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	APIToken    string
	RateLimiter *middleware.RateLimiter

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// コマンド
	ProfileService     ProfileServiceInterface
	ApplicationService ApplicationServiceInterface
	ActionService      ActionServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → SecurityHeaders → BearerAuth → Identity → RateLimit
//
// /health と /metrics は認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	profileHandler := NewProfileHandler(deps.ProfileService, deps.Logger)
	appHandler := NewApplicationHandler(deps.ApplicationService, deps.Logger)
	actionHandler := NewActionHandler(deps.ActionService, deps.Logger)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker, deps.Logger))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.APIToken))
		r.Use(middleware.NewIdentityMiddleware())
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.Get)
			r.Post("/activate", profileHandler.Activate)
			r.Post("/deactivate", profileHandler.Deactivate)
			r.Put("/preferences", profileHandler.UpdatePreferences)
			r.Post("/refresh", profileHandler.Refresh)
			r.Post("/check", profileHandler.CheckNow)
		})

		r.Route("/api/applications", func(r chi.Router) {
			r.Get("/", appHandler.List)
			r.Post("/", appHandler.Record)
			r.Delete("/", appHandler.Remove)
			r.Delete("/all", appHandler.Clear)
			r.Put("/followup", appHandler.SetFollowupDays)
			r.Get("/followup-template", appHandler.FollowupTemplate)
		})

		r.Post("/api/actions", actionHandler.Handle)
	})

	return r
}

// NewOpsRouter はワーカープロセス用の運用エンドポイント（/health, /metrics）だけを持つルーターを返す。
func NewOpsRouter(checker HealthChecker, metricsHandler http.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Get("/health", NewHealthHandler(checker, logger))
	r.Method(http.MethodGet, "/metrics", metricsHandler)
	return r
}
