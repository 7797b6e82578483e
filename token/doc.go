// Package token signs and parses session tokens under role-based signature
// tiers. Each tier carries its own access/refresh secret pair so a leaked
// default-tier secret cannot forge elevated sessions; the tier used for
// verification is declared by the caller via the bearer scheme prefix and is
// never guessed from the token itself.
package token
