package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrganizationIDKey is the gin context key holding the caller organization id
const OrganizationIDKey = "organization_id"

// OrganizationValidator checks that an organization exists
type OrganizationValidator interface {
	ValidateOrganization(ctx context.Context, id uuid.UUID) error
}

// OrganizationValidatorFunc adapts a function to OrganizationValidator
type OrganizationValidatorFunc func(ctx context.Context, id uuid.UUID) error

// ValidateOrganization calls f
func (f OrganizationValidatorFunc) ValidateOrganization(ctx context.Context, id uuid.UUID) error {
	return f(ctx, id)
}

// TenantConfig holds configuration for the organization middleware
type TenantConfig struct {
	// SkipPaths are paths that don't require an organization (e.g., health check)
	SkipPaths []string
	// Required rejects requests without the header
	Required bool
	// Validator optionally checks the organization exists
	Validator OrganizationValidator
	Logger    *zap.Logger
}

// DefaultTenantConfig returns default organization middleware configuration
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		SkipPaths: []string{"/health", "/api/v1/health", "/swagger"},
		Required:  true,
	}
}

// Tenant reads the caller organization from the X-Tenant-ID header, checks
// its format and stores it in the gin and request contexts.
func Tenant(cfg TenantConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip || strings.HasPrefix(path, skip+"/") {
				c.Next()
				return
			}
		}

		raw := strings.TrimSpace(c.GetHeader(logger.TenantHeader))
		if raw == "" {
			if cfg.Required {
				respondUnauthorized(c, "Organization identification required")
				return
			}
			c.Next()
			return
		}

		orgID, err := uuid.Parse(raw)
		if err != nil || orgID == uuid.Nil {
			respondUnauthorized(c, "Invalid organization ID format")
			return
		}

		if cfg.Validator != nil {
			if err := cfg.Validator.ValidateOrganization(c.Request.Context(), orgID); err != nil {
				log.Warn("Organization validation failed",
					zap.String("organization_id", orgID.String()),
					zap.Error(err),
				)
				respondUnauthorized(c, "Unknown organization")
				return
			}
		}

		c.Set(OrganizationIDKey, orgID)
		// logger.GinMiddleware may already have tagged the request logger
		if ctx := c.Request.Context(); logger.GetOrganizationID(ctx) == "" {
			ctx, _ = logger.WithOrganizationID(ctx, logger.FromContext(ctx), orgID.String())
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, message, GetRequestID(c)))
}

// GetOrganizationID returns the organization set by Tenant, or uuid.Nil
func GetOrganizationID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(OrganizationIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
