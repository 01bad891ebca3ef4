package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/consult-service/internal/domain"
	apperrors "github.com/spec-kit/consult-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal is the verified caller identity attached to a request or live
// session before any core operation runs.
type Principal struct {
	UserID string
	Role   domain.ActorRole
}

// IsStaff reports whether the caller acts as staff.
func (p *Principal) IsStaff() bool {
	return p.Role == domain.RoleStaff
}

// AuthMiddleware validates bearer tokens and attaches the principal.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes. WebSocket upgrades
// cannot set headers from the browser API, so a token query parameter is
// accepted as a fallback.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	tokenStr := bearerToken(c.Get("Authorization"))
	if tokenStr == "" {
		tokenStr = c.Query("token")
	}
	if tokenStr == "" {
		return apperrors.NewUnauthorized("missing credentials")
	}

	claims, err := m.tokens.ParseToken(tokenStr)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	if claims.SubjectID == "" {
		return apperrors.NewUnauthorized("invalid token subject")
	}

	c.Locals(principalKey, &Principal{UserID: claims.SubjectID, Role: claims.Role})
	return c.Next()
}

// RequireStaff rejects non-staff callers.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || !principal.IsStaff() {
			return apperrors.NewForbidden("staff required")
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// PrincipalFromLocals recovers the principal from a raw locals value, used
// by the WebSocket handler after the upgrade.
func PrincipalFromLocals(val any) (*Principal, bool) {
	principal, ok := val.(*Principal)
	return principal, ok
}

// PrincipalLocalsKey exposes the locals key for transports that read
// principals outside a fiber context.
func PrincipalLocalsKey() string {
	return principalKey
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
