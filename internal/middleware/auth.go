package middleware

import (
	"context"
	"strings"

	"github.com/fathima-sithara/snapshare/internal/auth"
	"github.com/fathima-sithara/snapshare/internal/models"
	"github.com/gofiber/fiber/v2"
)

const (
	localUser   = "user"
	localClaims = "claims"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error)
}

// TokenFrom reads the bearer token from the Authorization header, falling
// back to the session cookie.
func TokenFrom(c *fiber.Ctx, cookieName string) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Cookies(cookieName)
}

// RequireAuth rejects requests without a valid token and stores the
// freshly loaded account in the request locals.
func RequireAuth(authn Authenticator, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, claims, err := authn.Authenticate(c.UserContext(), TokenFrom(c, cookieName))
		if err != nil {
			return err
		}
		c.Locals(localUser, user)
		c.Locals(localClaims, claims)
		return c.Next()
	}
}

func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localUser).(*models.User)
	return u
}

func CurrentClaims(c *fiber.Ctx) *auth.Claims {
	cl, _ := c.Locals(localClaims).(*auth.Claims)
	return cl
}
