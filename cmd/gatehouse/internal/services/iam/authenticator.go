package iam

import (
	"context"
	"net/http"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
)

// Authenticator resolves credentials to a principal.
//
// Return values:
//   - (principal, nil): authentication successful
//   - (nil, nil): no usable credentials, the request is anonymous
//   - (nil, error): a collaborator failed and identity could not be decided
type Authenticator interface {
	Authenticate(ctx context.Context, req AuthRequest) (*auth.Principal, error)
}

// AuthRequest wraps the request data authenticators look at.
type AuthRequest struct {
	// Headers contains HTTP headers (including Authorization, Cookie)
	Headers http.Header

	// Cookies contains parsed cookies
	Cookies []*http.Cookie

	// Body is the raw request body. Only populated when a body signature
	// header is present.
	Body []byte
}

// NewAuthRequest builds an AuthRequest from r without consuming its body.
func NewAuthRequest(r *http.Request) AuthRequest {
	return AuthRequest{
		Headers: r.Header,
		Cookies: r.Cookies(),
	}
}

func (r AuthRequest) cookie(name string) string {
	for _, c := range r.Cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
