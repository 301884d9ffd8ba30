package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

type Reason string

const (
	ReasonMalformed   Reason = "malformed"
	ReasonSignature   Reason = "bad_signature"
	ReasonExpired     Reason = "expired"
	ReasonNotYetValid Reason = "not_yet_valid"
	ReasonClaims      Reason = "invalid_claims"
	ReasonNoSecret    Reason = "no_secret"
)

// VerifyError records why a token was rejected. It never leaves the
// package through Verify.
type VerifyError struct {
	Reason Reason
	Err    error
}

func (e *VerifyError) Error() string {
	return "token " + string(e.Reason) + ": " + e.Err.Error()
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ReasonNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	default:
		return ReasonClaims
	}
}

func reasonOf(err error) Reason {
	var verr *VerifyError
	if errors.As(err, &verr) {
		return verr.Reason
	}
	return ReasonClaims
}
