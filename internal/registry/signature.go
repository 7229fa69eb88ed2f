package registry

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"math/big"
)

// VerifyES256 checks an ECDSA P-256 signature over message using a base64
// DER SubjectPublicKeyInfo public key. The signature may be ASN.1 DER or the
// raw 64-byte r||s form that mobile secure elements emit.
func VerifyES256(publicKeyB64 string, message []byte, signatureB64 string) (bool, error) {
	der, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return false, fmt.Errorf("decoding public key: %w", err)
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return false, fmt.Errorf("parsing public key: %w", err)
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return false, fmt.Errorf("%w: not an ECDSA key", ErrUnsupportedKey)
	}

	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false, fmt.Errorf("decoding signature: %w", err)
	}

	digest := sha256.Sum256(message)
	if ecdsa.VerifyASN1(pub, digest[:], sig) {
		return true, nil
	}
	if len(sig) == 64 {
		r := new(big.Int).SetBytes(sig[:32])
		s := new(big.Int).SetBytes(sig[32:])
		return ecdsa.Verify(pub, digest[:], r, s), nil
	}
	return false, nil
}
