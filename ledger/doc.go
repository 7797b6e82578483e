// Package ledger tracks revoked session token identifiers. Entries are
// written on single-session logout, carry the originating token's own expiry,
// and are pruned by a periodic sweep. The sweep is a liveness concern only:
// entries self-expire, and token expiry is enforced at verification time
// regardless of the ledger's contents.
package ledger
