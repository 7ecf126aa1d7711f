package competitor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ethpandaops/txrace/clients/execution/rpc"
)

type FeeModel uint8

const (
	FeeModelLegacy FeeModel = iota
	FeeModelFeeMarket
)

func (m FeeModel) String() string {
	switch m {
	case FeeModelFeeMarket:
		return "fee-market"
	default:
		return "legacy"
	}
}

// GasPrice is a per-gas price in wei. UpperBound marks a maxFeePerGas fallback
// used when no effective price was reported.
type GasPrice struct {
	Wei        *big.Int `json:"wei"`
	UpperBound bool     `json:"upper_bound,omitempty"`
}

// TransactionRecord is a transaction as fetched from the node.
type TransactionRecord struct {
	Hash     common.Hash
	From     common.Address
	To       *common.Address
	Input    []byte
	Value    *uint256.Int
	Gas      uint64
	FeeModel FeeModel

	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int

	BlockNumber *uint64
	Index       *uint64

	// Status is nil when the node returned no receipt
	Status            *uint64
	EffectiveGasPrice GasPrice
}

func RecordFromTransaction(tx *rpc.Transaction, receipt *rpc.Receipt) *TransactionRecord {
	record := &TransactionRecord{
		Hash:                 tx.Hash,
		From:                 tx.From,
		To:                   tx.To,
		Input:                tx.Input,
		Value:                new(uint256.Int),
		Gas:                  uint64(tx.Gas),
		GasPrice:             rpc.BigValue(tx.GasPrice),
		MaxFeePerGas:         rpc.BigValue(tx.MaxFeePerGas),
		MaxPriorityFeePerGas: rpc.BigValue(tx.MaxPriorityFeePerGas),
		BlockNumber:          tx.BlockNumber.Uint64Ptr(),
		Index:                tx.TransactionIndex.Uint64Ptr(),
	}

	if tx.Value != nil {
		if v, overflow := uint256.FromBig(tx.Value.ToInt()); !overflow {
			record.Value = v
		}
	}

	// type 0 and 1 are priced by gasPrice, 2 and above (incl. blob and rollup types) by the fee market
	if tx.Type >= 2 && tx.MaxFeePerGas != nil {
		record.FeeModel = FeeModelFeeMarket
	}

	if receipt != nil {
		status := uint64(receipt.Status)
		record.Status = &status
		if record.BlockNumber == nil {
			record.BlockNumber = receipt.BlockNumber.Uint64Ptr()
		}
		if record.Index == nil {
			record.Index = receipt.TransactionIndex.Uint64Ptr()
		}
	}

	record.EffectiveGasPrice = EffectiveGasPrice(tx, receipt)
	return record
}

// EffectiveGasPrice computes the price paid per gas.
// Legacy transactions pay gasPrice. Fee-market transactions use a reported effective
// price when available (transaction first, then receipt) and otherwise maxFeePerGas
// flagged as an upper bound.
func EffectiveGasPrice(tx *rpc.Transaction, receipt *rpc.Receipt) GasPrice {
	if tx.Type < 2 || tx.MaxFeePerGas == nil {
		return GasPrice{Wei: bigOrZero(rpc.BigValue(tx.GasPrice))}
	}

	if tx.EffectiveGasPrice != nil {
		return GasPrice{Wei: rpc.BigValue(tx.EffectiveGasPrice)}
	}
	if receipt != nil && receipt.EffectiveGasPrice != nil {
		return GasPrice{Wei: rpc.BigValue(receipt.EffectiveGasPrice)}
	}

	return GasPrice{
		Wei:        rpc.BigValue(tx.MaxFeePerGas),
		UpperBound: true,
	}
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
