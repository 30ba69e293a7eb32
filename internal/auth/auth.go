// Package auth implements the none/basic/bearer authentication
// variants shared by the dispatcher (outbound) and the ingest
// endpoint (inbound).
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// Type selects the authentication scheme.
type Type string

const (
	TypeNone   Type = "none"
	TypeBasic  Type = "basic"
	TypeBearer Type = "bearer"
)

// ParseType validates an auth type string from configuration.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(s)) {
	case TypeNone, "":
		return TypeNone, nil
	case TypeBasic:
		return TypeBasic, nil
	case TypeBearer:
		return TypeBearer, nil
	default:
		return "", fmt.Errorf("unknown auth type %q (expected none, basic or bearer)", s)
	}
}

// Credentials is the tagged auth variant selected by configuration.
// The zero value behaves as TypeNone.
type Credentials struct {
	Type        Type
	Username    string
	Password    string
	BearerToken string
}

// Apply sets the outbound Authorization header for the configured scheme.
func (c Credentials) Apply(req *http.Request) {
	switch c.Type {
	case TypeBasic:
		req.SetBasicAuth(c.Username, c.Password)
	case TypeBearer:
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
}

// Verify checks the inbound request against the configured scheme.
// It inspects only headers; callers reject before reading the body.
func (c Credentials) Verify(r *http.Request) bool {
	switch c.Type {
	case TypeNone, "":
		return true
	case TypeBasic:
		user, pass, ok := r.BasicAuth()
		if !ok {
			return false
		}
		return constantTimeEqual(user, c.Username) && constantTimeEqual(pass, c.Password)
	case TypeBearer:
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return false
		}
		return constantTimeEqual(token, c.BearerToken)
	default:
		return false
	}
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
