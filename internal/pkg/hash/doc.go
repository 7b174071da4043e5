// Package hash hashes and verifies secrets.
//
// Passwords go through bcrypt or argon2id behind the Hash interface; Password
// picks the right one for an existing hash by its prefix so both formats can
// live in the same table. One-time codes go through keyed HMAC-SHA256 so they
// can be matched by equality inside the store.
package hash
