package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// FunctionPrefix is the path prefix the serverless platform puts in front of
// the API when requests are proxied to a function instead of the server.
const FunctionPrefix = "/.netlify/functions/api"

// NormalizePath rewrites the request path once, before routing, so every
// handler sees the same canonical form:
//
//	/.netlify/functions/api/scores/  ->  /api/scores
//	/api//tournaments///abc          ->  /api/tournaments/abc
func NormalizePath() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if normalized := CanonicalPath(path); normalized != path {
			c.Path(normalized)
		}
		return c.Next()
	}
}

// CanonicalPath applies the normalisation rules to a raw path.
func CanonicalPath(path string) string {
	if rest, ok := strings.CutPrefix(path, FunctionPrefix); ok {
		if rest == "" || rest[0] == '/' {
			path = "/api" + rest
		}
	}

	var b strings.Builder
	b.Grow(len(path))
	prevSlash := false
	for i := 0; i < len(path); i++ {
		ch := path[i]
		if ch == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(ch)
	}

	out := b.String()
	if len(out) > 1 {
		out = strings.TrimSuffix(out, "/")
	}
	if out == "" {
		out = "/"
	}
	return out
}
