package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	CookieName = "sessionId"
	MaxAge     = 7 * 24 * time.Hour

	tokenPrefix = "sess_"
	tokenBytes  = 32
	localsKey   = "session"
)

var (
	ErrNoSession = errors.New("no session on request")

	tokenPattern = regexp.MustCompile(`^sess_[A-Za-z0-9_-]{43}$`)
)

// NewToken mints an unguessable session token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// Valid reports whether tok has the shape of a token issued by NewToken.
func Valid(tok string) bool {
	return tokenPattern.MatchString(tok)
}

// Resolver attaches a session token to every request, issuing a cookie when
// the client did not present a usable one.
type Resolver struct {
	secure bool
}

func NewResolver(secure bool) *Resolver {
	return &Resolver{secure: secure}
}

func (r *Resolver) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := strings.TrimSpace(c.Cookies(CookieName))
		if !Valid(tok) {
			fresh, err := NewToken()
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "could not create session")
			}
			tok = fresh
			c.Cookie(&fiber.Cookie{
				Name:     CookieName,
				Value:    tok,
				Path:     "/",
				MaxAge:   int(MaxAge / time.Second),
				HTTPOnly: true,
				Secure:   r.secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals(localsKey, tok)
		return c.Next()
	}
}

// FromCtx returns the token resolved for this request.
func FromCtx(c *fiber.Ctx) (string, error) {
	tok, ok := c.Locals(localsKey).(string)
	if !ok || tok == "" {
		return "", ErrNoSession
	}
	return tok, nil
}
