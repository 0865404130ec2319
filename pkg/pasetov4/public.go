package pasetov4

import "crypto/ed25519"

// Sign produces a v4.public token over payload with footer attached in the
// clear. The implicit assertion binds out-of-band context into the
// signature without appearing in the token; pass nil when unused.
func Sign(key ed25519.PrivateKey, payload, footer, implicit []byte) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", ErrInvalidKey
	}

	m2 := pae([]byte(headerPublic), payload, footer, implicit)
	sig := ed25519.Sign(key, m2)

	body := make([]byte, 0, len(payload)+ed25519.SignatureSize)
	body = append(body, payload...)
	body = append(body, sig...)

	return encode(headerPublic, body, footer), nil
}

// Verify checks a v4.public token and returns the payload and footer bytes.
// The implicit assertion must match the one used at signing time.
func Verify(key ed25519.PublicKey, raw string, implicit []byte) (payload, footer []byte, err error) {
	if len(key) != ed25519.PublicKeySize {
		return nil, nil, ErrInvalidKey
	}

	purpose, body, footer, err := Split(raw)
	if err != nil {
		return nil, nil, err
	}
	if purpose != PurposePublic {
		return nil, nil, ErrTokenFormat
	}
	if len(body) < ed25519.SignatureSize {
		return nil, nil, ErrTokenFormat
	}

	payload = body[:len(body)-ed25519.SignatureSize]
	sig := body[len(body)-ed25519.SignatureSize:]

	m2 := pae([]byte(headerPublic), payload, footer, implicit)
	if !ed25519.Verify(key, m2, sig) {
		return nil, nil, ErrInvalidSignature
	}

	return payload, footer, nil
}
