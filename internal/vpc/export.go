package vpc

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultShareTokenTTL = 30 * 24 * time.Hour

// Portable is the self-contained export of a certificate: the claims in
// plain JSON for display, the raw envelope for offline verification, a
// verify URL, and a share token for link-based access.
type Portable struct {
	Certificate  Claims `json:"certificate"`
	EnvelopeB64  string `json:"envelope"` // COSE Sign1, base64
	PublicKeyB64 string `json:"publicKey"`
	IssuedAt     int64  `json:"issuedAt"` // unix seconds
	VerifyURL    string `json:"verifyUrl"`
	ShareToken   string `json:"shareToken"`
	ShareExpires int64  `json:"shareExpires"` // unix seconds
}

// shareClaims is the JWT claim set for a share link.
type shareClaims struct {
	CertificateID string `json:"vpcId"`
	jwt.RegisteredClaims
}

// ExportPortable builds the portable form of a certificate. The share token
// is an EdDSA JWT signed with the issuer key, so verify endpoints can accept
// it without a database hit.
func (i *Issuer) ExportPortable(ctx context.Context, certificateID, baseURL string) (*Portable, error) {
	cert, err := i.Get(ctx, certificateID)
	if err != nil {
		return nil, err
	}

	expires := i.now().Add(defaultShareTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, shareClaims{
		CertificateID: cert.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuerName,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(i.now()),
		},
	})
	signed, err := token.SignedString(i.priv)
	if err != nil {
		return nil, fmt.Errorf("signing share token: %w", err)
	}

	return &Portable{
		Certificate:  cert.Claims,
		EnvelopeB64:  base64.StdEncoding.EncodeToString(cert.Envelope),
		PublicKeyB64: base64.StdEncoding.EncodeToString(i.pub),
		IssuedAt:     cert.IssuedAt.Unix(),
		VerifyURL:    fmt.Sprintf("%s/verify/%s", baseURL, cert.ID),
		ShareToken:   signed,
		ShareExpires: expires.Unix(),
	}, nil
}

// ParseShareToken validates a share token and returns the certificate id it
// grants access to.
func (i *Issuer) ParseShareToken(tokenString string) (string, error) {
	var claims shareClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.pub, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidShareToken, err)
	}
	return claims.CertificateID, nil
}
