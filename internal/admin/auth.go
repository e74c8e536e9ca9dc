// Package admin gates the management API and serves the dashboard.
package admin

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/wichananm65/storefront-backend/internal/apperror"
)

const (
	EmailHeader  = "X-Admin-Email"
	tokenTTL     = 12 * time.Hour
	tokenContext = "admin"
)

// Authenticator recognizes the single configured admin, either by email
// carried in the request or by a signed token from SignIn.
type Authenticator struct {
	email        string
	passwordHash string
	secret       []byte
	now          func() time.Time
}

func NewAuthenticator(email, passwordHash, secret string) *Authenticator {
	return &Authenticator{
		email:        strings.ToLower(strings.TrimSpace(email)),
		passwordHash: passwordHash,
		secret:       []byte(secret),
		now:          time.Now,
	}
}

func (a *Authenticator) IsAdmin(email string) bool {
	return a.email != "" && strings.EqualFold(strings.TrimSpace(email), a.email)
}

// SignIn returns an HS256 token for the admin. The password is checked only
// when a bcrypt hash is configured.
func (a *Authenticator) SignIn(email, password string) (string, time.Time, error) {
	if len(a.secret) == 0 {
		return "", time.Time{}, apperror.Forbidden("admin sign-in is not configured")
	}
	if !a.IsAdmin(email) {
		return "", time.Time{}, apperror.Unauthorized("invalid email or password")
	}
	if a.passwordHash != "" && bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password)) != nil {
		return "", time.Time{}, apperror.Unauthorized("invalid email or password")
	}

	exp := a.now().Add(tokenTTL)
	claims := jwt.MapClaims{
		"email": a.email,
		"role":  "admin",
		"exp":   exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, apperror.Wrap(apperror.KindInternal, err, "failed to generate token")
	}
	return signed, exp, nil
}

type emailPayload struct {
	Email string `json:"email" form:"email"`
}

// requestEmail reads the admin email from ?email=, the X-Admin-Email header
// or a JSON/form body field, in that order.
func requestEmail(c *fiber.Ctx) string {
	if v := c.Query("email"); v != "" {
		return v
	}
	if v := c.Get(EmailHeader); v != "" {
		return v
	}
	if len(c.Body()) > 0 {
		payload := new(emailPayload)
		if err := c.BodyParser(payload); err == nil {
			return payload.Email
		}
	}
	return ""
}

// RequireAdmin accepts a bearer token issued by SignIn or, failing that, the
// admin email carried in the request.
func (a *Authenticator) RequireAdmin() fiber.Handler {
	var tokenGate fiber.Handler
	if len(a.secret) > 0 {
		tokenGate = jwtware.New(jwtware.Config{
			SigningKey:    a.secret,
			SigningMethod: "HS256",
			ContextKey:    tokenContext,
			SuccessHandler: func(c *fiber.Ctx) error {
				tok, ok := c.Locals(tokenContext).(*jwt.Token)
				if !ok {
					return apperror.Respond(c, apperror.Unauthorized("invalid token"))
				}
				claims, _ := tok.Claims.(jwt.MapClaims)
				email, _ := claims["email"].(string)
				if !a.IsAdmin(email) {
					return apperror.Respond(c, apperror.Forbidden("admin access required"))
				}
				return c.Next()
			},
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				return apperror.Respond(c, apperror.Unauthorized("invalid or expired token"))
			},
		})
	}

	return func(c *fiber.Ctx) error {
		if tokenGate != nil && strings.HasPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ") {
			return tokenGate(c)
		}
		email := requestEmail(c)
		if email == "" {
			return apperror.Respond(c, apperror.Unauthorized("admin email required"))
		}
		if !a.IsAdmin(email) {
			return apperror.Respond(c, apperror.Forbidden("admin access required"))
		}
		return c.Next()
	}
}
