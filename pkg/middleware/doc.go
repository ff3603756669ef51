// Package middleware provides the HTTP middleware in front of the audit read
// endpoints.
//
// ActorMiddleware maps a bearer token to the CMS user making the request:
//
//	actors := middleware.NewActorMiddleware(middleware.StaticTokens(cfg.Security.APITokens), true)
//	router.Use(actors.Handler)
//
// RateLimit counts requests per actor in redis, so every replica shares the
// same window. It fails open when redis is unavailable:
//
//	limiter := middleware.NewRateLimiter(redisClient, nil, "masthead:ratelimit:audit")
//	router.Use(middleware.RateLimit(limiter, logger))
//
// # Related Packages
//
//   - pkg/contextkeys: the actor key
//   - pkg/audit: the endpoints behind this middleware
package middleware
