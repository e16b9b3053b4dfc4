// Package trust produces the verifiable trail attached to every answer: an Ed25519
// signature over the final answer and a SHA-256 audit hash over a fixed snapshot.
package trust

// Sentinels written in place of a real value when the trust chain degrades.
// A walk never fails because signing or hashing failed.
const (
	SentinelAuditHash      = "0xAUDIT_FAILED_SEC_ISSUE"
	SentinelSignature      = "0xSIGNATURE_UNAVAILABLE"
	PendingHashPlaceholder = "0xPENDING_HASH"
)
