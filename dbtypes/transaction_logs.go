package dbtypes

import "time"

// TransactionLog is one ingestion of a transaction hash by one source.
// The same hash usually appears once per source that saw it.
type TransactionLog struct {
	Hash        string    `db:"hash"`
	Source      string    `db:"source"`
	Timestamp   time.Time `db:"timestamp"`
	BlockNumber *int64    `db:"block_number"`
}
