package domain

import "time"

// Decision is one locally recorded ledger submission. URIDigest is the
// keccak256 of the pinned document bytes; for rejection documents the
// ledger keeps no commitment, so this is the only place the digest lives.
type Decision struct {
	RequestID uint64    `json:"requestId"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	TxHash    string    `json:"txHash"`
	URI       string    `json:"uri,omitempty"`
	URIDigest string    `json:"uriDigest,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CDate     time.Time `json:"cdate"`
}
