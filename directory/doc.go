// Package directory is the credential directory: the user record store the
// engine reads and mutates. It defines the user model, the Store interface
// consumed by the rest of authcore, and a Redis-backed implementation whose
// challenge failure counting is a single server-side atomic update.
package directory
