// Package integrity signs action log entries so tampering with a room's
// history is detectable even by someone who can recompute the hash chain.
//
// Each room gets its own HMAC key derived with HKDF from a root key, and
// keys are rotated by id so old entries stay verifiable.
package integrity
