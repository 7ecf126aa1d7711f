package monitor

import (
	"github.com/ethpandaops/txrace/clients/execution/rpc"
)

// SubmissionStatus is the on-chain state of a submitted transaction.
type SubmissionStatus string

const (
	StatusSuccess     SubmissionStatus = "success"
	StatusReverted    SubmissionStatus = "reverted"
	StatusNotIncluded SubmissionStatus = "not_included"
)

// Classify maps a receipt to a status. A nil receipt means the transaction was not included.
func Classify(receipt *rpc.Receipt) SubmissionStatus {
	switch {
	case receipt == nil:
		return StatusNotIncluded
	case receipt.Succeeded():
		return StatusSuccess
	default:
		return StatusReverted
	}
}

// NeedsAnalysis reports whether a competitor should be searched for.
func (s SubmissionStatus) NeedsAnalysis() bool {
	return s == StatusReverted || s == StatusNotIncluded
}
