// Package authcore is the credential and session core of the Veil
// messaging service. It owns account signup, email confirmation, login,
// federated login, password reset, and the full lifetime of the JWT
// session-token pairs those flows hand out.
//
// The engine is storage-backed and stateless in process: account state
// lives in the credential directory, revoked tokens live in the
// revocation ledger, and every instance sharing those stores gives the
// same answers. Construct an Engine through the Builder:
//
//	engine, err := authcore.New().
//		WithConfig(cfg).
//		WithRedis(client).
//		WithNotifier(mailer).
//		Build()
//
// All failures surface as sentinel errors (ErrInvalidCredentials,
// ErrRevokedToken, ...) matched with errors.Is; callers map them to
// transport responses themselves.
package authcore
