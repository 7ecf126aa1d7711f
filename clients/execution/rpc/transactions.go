package rpc

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Transaction is the json shape returned by eth_getTransactionByHash.
// Only the fields needed for replaying and pricing a transaction are decoded.
type Transaction struct {
	Hash                 common.Hash     `json:"hash"`
	Type                 LenientUint64   `json:"type"`
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to"`
	Input                hexutil.Bytes   `json:"input"`
	Value                *hexutil.Big    `json:"value"`
	Gas                  LenientUint64   `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas"`

	// some clients include the effective price for mined transactions
	EffectiveGasPrice *hexutil.Big `json:"effectiveGasPrice"`

	BlockNumber      *LenientUint64 `json:"blockNumber"`
	TransactionIndex *LenientUint64 `json:"transactionIndex"`
}

// BlockTransactionHashes is the json shape of eth_getBlockByNumber without full transactions.
type BlockTransactionHashes struct {
	Number        LenientUint64 `json:"number"`
	Hash          common.Hash   `json:"hash"`
	BaseFeePerGas *hexutil.Big  `json:"baseFeePerGas"`
	Transactions  []common.Hash `json:"transactions"`
}

type Receipt struct {
	TransactionHash   common.Hash    `json:"transactionHash"`
	Status            LenientUint64  `json:"status"`
	GasUsed           LenientUint64  `json:"gasUsed"`
	EffectiveGasPrice *hexutil.Big   `json:"effectiveGasPrice"`
	BlockNumber       *LenientUint64 `json:"blockNumber"`
	TransactionIndex  *LenientUint64 `json:"transactionIndex"`
}

// Succeeded reports whether the receipt carries status 1.
func (r *Receipt) Succeeded() bool {
	return r.Status == 1
}

// BigValue returns the hexutil.Big as big.Int, or nil if absent.
func BigValue(b *hexutil.Big) *big.Int {
	if b == nil {
		return nil
	}
	return b.ToInt()
}
