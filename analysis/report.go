package analysis

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ethpandaops/txrace/competitor"
	"github.com/ethpandaops/txrace/timing"
)

// Submission carries what the submitting bot recorded about a transaction.
type Submission struct {
	Strategy          string   `json:"strategy,omitempty"`
	ExpectedProfitETH float64  `json:"expected_profit_eth,omitempty"`
	BlockNumber       *uint64  `json:"block_number,omitempty"`
	FlashblockIndex   *uint64  `json:"flashblock_index,omitempty"`
	Timestamp         string   `json:"timestamp,omitempty"`
	Status            string   `json:"status,omitempty"`
	GasUsed           *uint64  `json:"gas_used,omitempty"`
	GasPrice          *big.Int `json:"gas_price,omitempty"`
}

// Report is the result of one analysis run. It is never modified after being published.
type Report struct {
	OriginalHash common.Hash `json:"original_hash"`
	Outcome      Outcome     `json:"outcome"`
	Error        string      `json:"error,omitempty"`

	Block    *uint64      `json:"block,omitempty"`
	Index    *uint64      `json:"index,omitempty"`
	Declared *uint256.Int `json:"declared_value,omitempty"`

	Probes       int `json:"probes"`
	FailedProbes int `json:"failed_probes"`

	Submission *Submission         `json:"submission,omitempty"`
	Competitor *CompetitorAnalysis `json:"competitor,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// CompetitorAnalysis describes the transaction found at the winning position.
// Fields that could not be resolved stay empty, they are never zero filled.
type CompetitorAnalysis struct {
	OriginalHash common.Hash  `json:"original_hash"`
	Block        uint64       `json:"block"`
	Index        uint64       `json:"index"`
	Transferred  *uint256.Int `json:"transferred"`

	WinnerHash      *common.Hash    `json:"winner_hash,omitempty"`
	WinnerFrom      *common.Address `json:"winner_from,omitempty"`
	WinnerTo        *common.Address `json:"winner_to,omitempty"`
	ResolutionError string          `json:"resolution_error,omitempty"`

	OriginalGasPrice *competitor.GasPrice `json:"original_gas_price,omitempty"`
	WinnerGasPrice   *competitor.GasPrice `json:"winner_gas_price,omitempty"`
	GasPriceDelta    *big.Int             `json:"gas_price_delta,omitempty"`

	OriginalObservation *timing.HistoricalObservation `json:"original_observation,omitempty"`
	WinnerObservation   *timing.HistoricalObservation `json:"winner_observation,omitempty"`
	TimeDelta           *time.Duration                `json:"time_delta,omitempty"`

	SameBatch      *bool   `json:"same_batch,omitempty"`
	OriginalBatch  *uint64 `json:"original_batch,omitempty"`
	WinnerBatch    *uint64 `json:"winner_batch,omitempty"`
	BatchEstimated bool    `json:"batch_estimated,omitempty"`
}
