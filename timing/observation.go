package timing

import (
	"context"
	"strings"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/ethpandaops/txrace/dbtypes"
)

// LogStore is the read-only historical log store.
type LogStore interface {
	GetTransactionLogs(ctx context.Context, hash string) ([]*dbtypes.TransactionLog, error)
}

// HistoricalObservation aggregates all ingestion rows of one hash.
type HistoricalObservation struct {
	Hash        string    `json:"hash"`
	FirstSeen   time.Time `json:"first_seen"`
	Sources     []string  `json:"sources"`
	BlockNumber *uint64   `json:"block_number,omitempty"`
}

// Aggregate folds ingestion rows into one observation: earliest timestamp,
// distinct sorted source tags and the lowest block number. Returns nil for no rows.
func Aggregate(hash string, rows []*dbtypes.TransactionLog) *HistoricalObservation {
	if len(rows) == 0 {
		return nil
	}

	obs := &HistoricalObservation{
		Hash: strings.ToLower(hash),
	}
	sources := map[string]bool{}

	for i, row := range rows {
		if i == 0 || row.Timestamp.Before(obs.FirstSeen) {
			obs.FirstSeen = row.Timestamp
		}
		if row.Source != "" {
			sources[row.Source] = true
		}
		if row.BlockNumber != nil && *row.BlockNumber >= 0 {
			number := uint64(*row.BlockNumber)
			if obs.BlockNumber == nil || number < *obs.BlockNumber {
				obs.BlockNumber = &number
			}
		}
	}

	obs.Sources = maps.Keys(sources)
	slices.Sort(obs.Sources)
	return obs
}
