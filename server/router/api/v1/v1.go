package v1

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/divinecanvas/internal/profile"
	"github.com/hrygo/divinecanvas/plugin/ai"
	"github.com/hrygo/divinecanvas/plugin/ai/agent"
	"github.com/hrygo/divinecanvas/plugin/ai/digest"
	"github.com/hrygo/divinecanvas/plugin/ai/graph"
	ratelimit "github.com/hrygo/divinecanvas/server/middleware"
	aichat "github.com/hrygo/divinecanvas/server/router/api/v1/ai"
	"github.com/hrygo/divinecanvas/store"
)

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store

	// chatHandler and digestStreamer are nil when no LLM is configured.
	chatHandler    aichat.Handler
	digestStreamer *aichat.DigestStreamer
	limiter        *ratelimit.RateLimiter
}

// NewAPIV1Service wires the chat pipeline. A nil llm leaves the generation
// endpoints answering 503.
func NewAPIV1Service(profile *profile.Profile, store *store.Store, llm ai.LLMService) (*APIV1Service, error) {
	service := &APIV1Service{
		Profile: profile,
		Store:   store,
		limiter: ratelimit.NewRateLimiter(profile.RateLimitRPS, profile.RateLimitBurst),
	}
	if llm == nil {
		slog.Warn("AI is not configured; chat and digest endpoints are disabled")
		return service, nil
	}

	aiConfig := ai.NewConfigFromProfile(profile)
	registry, err := agent.NewRegistry(llm, profile.ToolModeAgents)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build strategies")
	}
	router := agent.NewChatRouter(llm, agent.ChatRouterConfig{Model: aiConfig.Router.Model})
	chat := aichat.NewChatService(store, graph.New(router, registry))

	service.chatHandler = aichat.Chain(chat,
		aichat.NewLoggingMiddleware(slog.Default()),
		aichat.NewValidationMiddleware(),
	)
	service.digestStreamer = aichat.NewDigestStreamer(
		digest.NewService(llm, aiConfig.Digest.ChunkSize),
		aiConfig.Digest.Concurrency,
	)
	return service, nil
}

// RegisterRoutes registers the HTTP API on the given Echo instance.
func (s *APIV1Service) RegisterRoutes(_ context.Context, echoServer *echo.Echo) error {
	api := echoServer.Group("/api", middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(_ string) (bool, error) {
			return true, nil
		},
		AllowHeaders: []string{"*"},
	}))

	generation := api.Group("", s.limiter.Middleware())
	generation.POST("/chat/completions", s.CreateChatCompletion)
	generation.POST("/documents/digest", s.DigestDocument)

	api.GET("/sessions", s.ListSessions)
	api.GET("/sessions/:id", s.GetSession)
	api.DELETE("/sessions/:id", s.DeleteSession)
	api.GET("/metrics/overview", s.GetMetricsOverview)
	return nil
}
