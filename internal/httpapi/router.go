// Package httpapi exposes the booking service over HTTP.
package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/rental/internal/auth"
	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
	"go.uber.org/zap"
)

const (
	contextKeyClaims   = "auth_claims"
	contextKeyIdentity = "rental_identity"
	bearerPrefix       = "Bearer "
)

var errMissingDependency = errors.New("httpapi: missing dependency")

// Config holds transport-level settings.
type Config struct {
	AllowedOrigins []string
	CookieName     string
	CookieSecure   bool
}

// Dependencies are the services the handlers call.
type Dependencies struct {
	Bookings  *rental.BookingService
	Catalog   *rental.Catalog
	Accounts  *auth.Accounts
	Sessions  *auth.SessionIssuer
	Validator *sessionvalidator.Validator
	Logger    *zap.Logger
	Clock     func() time.Time
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Bookings == nil || deps.Catalog == nil || deps.Accounts == nil || deps.Sessions == nil || deps.Validator == nil {
		return nil, errMissingDependency
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	handler := &httpHandler{cfg: cfg, deps: deps, logger: deps.Logger}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := router.Group("/api")
	public.POST("/renters", handler.handleRegister)
	public.POST("/sessions", handler.handleLogin)

	api := router.Group("/api")
	api.Use(requireSession(deps.Validator), requireIdentity)
	api.GET("/models", handler.handleListModels)
	api.GET("/models/:id/units", handler.handleListModelUnits)
	api.GET("/models/:id/units/available", handler.handleAvailableUnits)
	api.POST("/quotes", handler.handleQuote)
	api.POST("/bookings", handler.handleCreateBooking)
	api.GET("/bookings", handler.handleListBookings)
	api.POST("/bookings/:id/return", handler.handleReturnBooking)
	api.DELETE("/bookings/:id", handler.handleCancelBooking)

	seller := api.Group("/seller", requireRole(rental.RoleSeller))
	seller.GET("/bookings", handler.handleSellerBookings)
	seller.GET("/models", handler.handleSellerModels)
	seller.POST("/models", handler.handleSellerAddModel)

	admin := api.Group("/admin", requireRole(rental.RoleAdmin))
	admin.POST("/models", handler.handleAdminAddModel)
	admin.DELETE("/models/:id", handler.handleAdminDeleteModel)
	admin.POST("/units", handler.handleAdminAddUnit)
	admin.GET("/bookings", handler.handleAdminBookings)
	admin.POST("/reconcile", handler.handleAdminReconcile)

	return router, nil
}

// requireSession validates a bearer token when present and the session cookie otherwise.
func requireSession(validator *sessionvalidator.Validator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var (
			claims *sessionvalidator.Claims
			err    error
		)
		if header := ctx.GetHeader("Authorization"); strings.HasPrefix(header, bearerPrefix) {
			claims, err = validator.ValidateToken(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
		} else {
			claims, err = validator.ValidateRequest(ctx.Request)
		}
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorCodeUnauthorized, sessionFailureMessage(err)))
			return
		}
		ctx.Set(contextKeyClaims, claims)
		ctx.Next()
	}
}

func sessionFailureMessage(err error) string {
	switch {
	case errors.Is(err, sessionvalidator.ErrMissingCookie), errors.Is(err, sessionvalidator.ErrMissingToken):
		return "missing session"
	case errors.Is(err, sessionvalidator.ErrTokenExpired):
		return "session expired"
	default:
		return "invalid session"
	}
}

func requireIdentity(ctx *gin.Context) {
	claimsValue, ok := ctx.Get(contextKeyClaims)
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorCodeUnauthorized, "missing session"))
		return
	}
	claims, _ := claimsValue.(*sessionvalidator.Claims)
	identity, err := auth.IdentityFromClaims(claims)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorCodeUnauthorized, "invalid session"))
		return
	}
	ctx.Set(contextKeyIdentity, identity)
	ctx.Next()
}

func requireRole(role string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !identityFrom(ctx).HasRole(role) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, errorResponse("forbidden", role+" role required"))
			return
		}
		ctx.Next()
	}
}

func identityFrom(ctx *gin.Context) rental.Identity {
	value, ok := ctx.Get(contextKeyIdentity)
	if !ok {
		return rental.Identity{}
	}
	identity, _ := value.(rental.Identity)
	return identity
}
