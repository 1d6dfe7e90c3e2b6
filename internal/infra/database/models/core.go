package models

import (
	"time"
)

// DecisionLog is the local audit trail of lifecycle decisions. The ledger
// holds the authoritative state; this table additionally records the digest
// of any pinned justification document, which the contract itself does not
// commit to.
type DecisionLog struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	RequestID uint64    `json:"requestID" gorm:"index;not null"`
	Action    string    `json:"action" gorm:"type:text;not null"`
	Actor     string    `json:"actor" gorm:"type:text;index"`
	TxHash    string    `json:"txHash" gorm:"type:text"`
	URI       string    `json:"uri" gorm:"type:text"`
	URIDigest string    `json:"uriDigest" gorm:"type:text"`
	Detail    string    `json:"detail" gorm:"type:text"`
	CDate     time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
