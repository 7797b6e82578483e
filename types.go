package authcore

import "context"

// Identity is the profile a federated provider asserts for a user. Email
// and EmailVerified come from the provider's own verification; the engine
// never confirms federated addresses itself.
type Identity struct {
	Email         string
	EmailVerified bool
	DisplayName   string
	PictureURL    string
}

// IdentityVerifier validates a federated identity assertion (for example a
// Google ID token) and returns the identity it asserts. Implementations
// must reject expired, forged, or wrong-audience assertions with an error.
type IdentityVerifier interface {
	Verify(ctx context.Context, assertion string) (*Identity, error)
}

// SignupInput carries the fields a local signup provides. Phone is
// optional and stored encrypted when present.
type SignupInput struct {
	FullName string
	Email    string
	Password string
	Phone    string
}
