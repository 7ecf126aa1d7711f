package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ethpandaops/txrace/dbtypes"
)

// GetTransactionLogs returns every ingestion row for hash, oldest first.
// Matching is case-insensitive, rows written by other ingesters may carry checksummed hex.
func (s *Store) GetTransactionLogs(ctx context.Context, hash string) ([]*dbtypes.TransactionLog, error) {
	logs := []*dbtypes.TransactionLog{}
	err := s.db.SelectContext(ctx, &logs, s.EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
			SELECT hash, source, "timestamp", block_number
			FROM transaction_logs
			WHERE lower(hash) = $1
			ORDER BY "timestamp" ASC, source ASC`,
		dbtypes.DBEngineSqlite: `
			SELECT hash, source, "timestamp", block_number
			FROM transaction_logs
			WHERE lower(hash) = $1
			ORDER BY "timestamp" ASC, source ASC`,
	}), strings.ToLower(hash))
	if err != nil {
		return nil, fmt.Errorf("error fetching transaction logs for %v: %w", hash, err)
	}
	return logs, nil
}

// InsertTransactionLogs stores ingestion rows, used to seed local stores.
func (s *Store) InsertTransactionLogs(logs []*dbtypes.TransactionLog) error {
	if len(logs) == 0 {
		return nil
	}

	return s.RunDBTransaction(func(tx *sqlx.Tx) error {
		var sql strings.Builder
		fmt.Fprint(&sql, `INSERT INTO transaction_logs (hash, source, "timestamp", block_number) VALUES `)

		args := make([]any, 0, len(logs)*4)
		for i, log := range logs {
			if i > 0 {
				fmt.Fprint(&sql, ", ")
			}
			fmt.Fprintf(&sql, "($%v, $%v, $%v, $%v)", i*4+1, i*4+2, i*4+3, i*4+4)
			args = append(args, strings.ToLower(log.Hash), log.Source, log.Timestamp.UTC(), log.BlockNumber)
		}

		if _, err := tx.Exec(sql.String(), args...); err != nil {
			return fmt.Errorf("error inserting transaction logs: %w", err)
		}
		return nil
	})
}
