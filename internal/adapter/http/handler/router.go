package handler

import (
	"custody-bridge/config"
	"custody-bridge/internal/adapter/http/middleware"
	redisStore "custody-bridge/internal/adapter/storage/redis"
	"custody-bridge/internal/core/ports"
	"custody-bridge/internal/metrics"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	RegistrySvc    ports.AddressRegistryService
	VaultSvc       ports.AssetVaultService
	EventSvc       ports.EventService
	Callers        ports.CallerDirectory
	Processor      common.Address
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	RateLimits     config.RateLimitConfig
	HealthCheckers []ports.HealthChecker
	Metrics        *metrics.Metrics    // nil = request metrics disabled
	Gatherer       prometheus.Gatherer // nil = /metrics not served
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.RateLimitRules(deps.RateLimits)

	// Helper: return rate limiter middleware if store and rule exist, else noop.
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	hmacAuth := middleware.HMACAuth(deps.Callers, deps.SigSvc, deps.NonceStore, deps.Logger)
	processorOnly := middleware.RequireProcessor(deps.Processor)

	v1 := r.Group("/api/v1")

	registryHandler := NewRegistryHandler(deps.RegistrySvc)
	registry := v1.Group("/registry")
	{
		registry.POST("/convert", hmacAuth, processorOnly, registryHandler.Convert)
		registry.POST("/addresses", rl(middleware.GroupRegister), registryHandler.RegisterAddress)
		registry.GET("/addresses/:id", rl(middleware.GroupPublicRead), registryHandler.GetAddress)
		registry.GET("/count", rl(middleware.GroupPublicRead), registryHandler.Count)
	}

	vaultHandler := NewVaultHandler(deps.VaultSvc)
	vault := v1.Group("/vault")
	{
		vault.POST("/deposits", hmacAuth, processorOnly, vaultHandler.Deposit)
		vault.POST("/convert", hmacAuth, processorOnly, vaultHandler.Convert)
		vault.GET("/tokens/:handle_id", rl(middleware.GroupPublicRead), vaultHandler.Tokens)
	}

	eventsHandler := NewEventsHandler(deps.EventSvc)
	v1.GET("/events", rl(middleware.GroupPublicRead), eventsHandler.List)

	return r
}
