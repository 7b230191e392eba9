// Package identity verifies Firebase ID tokens presented as bearer tokens.
package identity

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"research_portal_api/apperr"
	"research_portal_api/authz"
)

const GoogleCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// Verified is a token that passed verification.
type Verified struct {
	Principal authz.Principal
	ExpiresAt time.Time
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Verified, error)
}

// KeySource yields the RSA keys tokens may be signed with, by key id.
type KeySource interface {
	Keys(ctx context.Context) (map[string]*rsa.PublicKey, error)
}

// StaticKeys is a fixed KeySource.
type StaticKeys map[string]*rsa.PublicKey

func (s StaticKeys) Keys(context.Context) (map[string]*rsa.PublicKey, error) { return s, nil }

// GoogleCerts fetches Google's securetoken certificates and keeps them
// until the response's max-age runs out.
type GoogleCerts struct {
	URL    string
	Client *http.Client
	Now    func() time.Time

	mu      sync.Mutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

func NewGoogleCerts() *GoogleCerts {
	return &GoogleCerts{URL: GoogleCertsURL, Client: &http.Client{Timeout: 5 * time.Second}, Now: time.Now}
}

func (g *GoogleCerts) Keys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keys != nil && g.Now().Before(g.expires) {
		return g.keys, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch certs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch certs: status %d", resp.StatusCode)
	}
	var pems map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&pems); err != nil {
		return nil, fmt.Errorf("decode certs: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(pems))
	for kid, p := range pems {
		k, err := jwt.ParseRSAPublicKeyFromPEM([]byte(p))
		if err != nil {
			return nil, fmt.Errorf("parse cert %s: %w", kid, err)
		}
		keys[kid] = k
	}
	g.keys = keys
	g.expires = g.Now().Add(maxAge(resp.Header.Get("Cache-Control")))
	return keys, nil
}

func maxAge(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(part), "max-age="); ok {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return time.Duration(n) * time.Second
			}
		}
	}
	return time.Hour
}

type firebaseClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type FirebaseVerifier struct {
	projectID string
	keys      KeySource
	now       func() time.Time
}

func NewFirebaseVerifier(projectID string, keys KeySource) *FirebaseVerifier {
	return &FirebaseVerifier{projectID: projectID, keys: keys, now: time.Now}
}

func invalid(err error) error {
	return &apperr.Error{Kind: apperr.KindUnauthenticated, Message: "invalid token", Err: err}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Verified, error) {
	keys, err := v.keys.Keys(ctx)
	if err != nil {
		return Verified{}, err
	}
	claims := &firebaseClaims{}
	_, err = jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			k, ok := keys[kid]
			if !ok {
				return nil, fmt.Errorf("unknown key id %q", kid)
			}
			return k, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Verified{}, invalid(err)
	}
	if claims.Subject == "" {
		return Verified{}, invalid(fmt.Errorf("empty subject"))
	}
	role, err := authz.ParseRole(claims.Role)
	if err != nil {
		return Verified{}, invalid(err)
	}
	return Verified{
		Principal: authz.Principal{
			UID:   claims.Subject,
			Email: strings.ToLower(claims.Email),
			Name:  claims.Name,
			Role:  role,
		},
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
