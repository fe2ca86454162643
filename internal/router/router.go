package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/parking-lot-admin/internal/handler"    // handlers that implement the endpoints
	"github.com/iliyamo/parking-lot-admin/internal/middleware" // session, rate limit and cache middleware
)

// Handlers bundles every endpoint group the server exposes.
type Handlers struct {
	Auth    *handler.AuthHandler
	Lot     *handler.LotHandler
	Booking *handler.BookingHandler
	Report  *handler.ReportHandler
	Public  *handler.PublicHandler
	Health  echo.HandlerFunc
}

// Middleware carries the cross-cutting middleware built from config.
// RateLimit guards login and the admin group; Cache fronts GET /lots.
type Middleware struct {
	Guard     middleware.Authorizer
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// Register mounts all routes on e.  Nil middleware is treated as a
// pass-through.
func Register(e *echo.Echo, h Handlers, m Middleware) {
	m.RateLimit = orPass(m.RateLimit)
	m.Cache = orPass(m.Cache)
	RegisterRoutes(e, h.Health)
	RegisterPublic(e, h.Public, m.Cache)
	RegisterAuth(e, h.Auth, m.RateLimit)
	RegisterAdmin(e, h, m)
}

// RegisterRoutes registers the liveness probe.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterPublic registers unauthenticated discovery endpoints.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	e.GET("/lots", p.ListLots, cache)
}

// RegisterAuth registers the session-less admin identity endpoints.
// Login is rate limited per client; register and check-user are not.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, rl echo.MiddlewareFunc) {
	g := e.Group("/admin")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login, rl)
	g.GET("/check-user/:username", a.CheckUser)
}

// RegisterAdmin registers every route that needs a session.  The lot ID
// in the session scopes each request; the handlers never take it from
// the path.
func RegisterAdmin(e *echo.Echo, h Handlers, m Middleware) {
	g := e.Group("/admin", middleware.JWTAuth(m.Guard), m.RateLimit)

	g.GET("/profile", h.Auth.Profile)

	// ---- Lot profile ----
	g.POST("/parking-lot", h.Lot.Create)
	g.GET("/parking-lot", h.Lot.Get)
	g.PUT("/parking-lot", h.Lot.Update)

	// ---- Bookings ----
	// arrival and departure are static segments, so they win over :id
	g.GET("/bookings", h.Booking.List)
	g.POST("/bookings", h.Booking.Create)
	g.POST("/bookings/arrival", h.Booking.Arrival)
	g.POST("/bookings/departure", h.Booking.Departure)
	g.GET("/bookings/:id", h.Booking.Get)
	g.PUT("/bookings/:id", h.Booking.Update)

	// ---- Reports ----
	g.GET("/users", h.Report.Users)
	g.GET("/stats", h.Report.Stats)
}

func orPass(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	if mw != nil {
		return mw
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
}
