package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xcontext"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xerrors"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xhttp"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xslog"
)

const accessTokenType = "access"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// AdminClaims are the claims of an admin access token issued by the
// dashboard's identity provider.
type AdminClaims struct {
	TokenType string `json:"token_type"`
	UserID    any    `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// AdminSubject is the user id claim when present, the subject otherwise.
func (c AdminClaims) AdminSubject() string {
	if c.UserID != nil {
		return fmt.Sprint(c.UserID)
	}
	return c.Subject
}

type AdminVerifier struct {
	secret []byte
	issuer string
}

func NewAdminVerifier(secret string, issuer string) *AdminVerifier {
	return &AdminVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify checks an HS256 access token and returns its claims.
func (v *AdminVerifier) Verify(tokenString string) (*AdminClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.TokenType != accessTokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AdminAuth guards dashboard routes with an admin access token. An
// unconfigured verifier rejects every request.
func AdminAuth(verifier *AdminVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if verifier == nil || len(verifier.secret) == 0 {
				xerrors.WriteError(ctx, w, xerrors.ServiceUnavailable(xerrors.WithMessage("admin authentication is not configured")))
				return
			}

			tokenString, ok := xhttp.BearerToken(r)
			if !ok {
				xerrors.WriteError(ctx, w, xerrors.Unauthorized(
					xerrors.WithMessage("missing Authorization header"),
					xerrors.WithCause(ErrMissingToken),
				))
				return
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				xslog.FromContext(ctx).WarnContext(ctx, "admin token rejected",
					xslog.RequestPath(r),
					xslog.ErrorGroup(err),
				)
				xerrors.WriteError(ctx, w, xerrors.Unauthorized(xerrors.WithMessage("invalid or expired token")))
				return
			}

			ctx = xcontext.SetAdminSubject(ctx, claims.AdminSubject())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
