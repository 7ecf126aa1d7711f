package competitor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/txrace/clients/execution/rpc"
	"github.com/ethpandaops/txrace/simulation"
)

// ErrPositionOutOfRange is returned when the winning position does not exist in the real block.
var ErrPositionOutOfRange = errors.New("position out of range of block transactions")

// NodeClient is the node query interface used to resolve transactions.
type NodeClient interface {
	GetTransactionByHash(ctx context.Context, txHash common.Hash) (*rpc.Transaction, error)
	GetBlockTransactionHashes(ctx context.Context, number uint64) ([]common.Hash, error)
	GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*rpc.Receipt, error)
}

type Resolver struct {
	logger      logrus.FieldLogger
	client      NodeClient
	callTimeout time.Duration
}

// NewResolver creates a resolver. A positive callTimeout bounds every single node query.
func NewResolver(logger logrus.FieldLogger, client NodeClient, callTimeout time.Duration) *Resolver {
	return &Resolver{
		logger:      logger,
		client:      client,
		callTimeout: callTimeout,
	}
}

func (r *Resolver) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.callTimeout)
}

func (r *Resolver) blockTransactionHashes(ctx context.Context, block uint64) ([]common.Hash, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	hashes, err := r.client.GetBlockTransactionHashes(callCtx, block)
	if err != nil {
		return nil, fmt.Errorf("failed fetching transactions of block %v: %w", block, err)
	}
	return hashes, nil
}

// Resolve returns the transaction that actually occupies pos in the finalized block.
func (r *Resolver) Resolve(ctx context.Context, pos simulation.BlockPosition) (*TransactionRecord, error) {
	hashes, err := r.blockTransactionHashes(ctx, pos.Block)
	if err != nil {
		return nil, err
	}

	if pos.Index >= uint64(len(hashes)) {
		return nil, fmt.Errorf("%w: index %v, block %v has %v transactions", ErrPositionOutOfRange, pos.Index, pos.Block, len(hashes))
	}

	return r.Lookup(ctx, hashes[pos.Index])
}

// BlockTransactionCount returns the number of transactions in block.
func (r *Resolver) BlockTransactionCount(ctx context.Context, block uint64) (uint64, error) {
	hashes, err := r.blockTransactionHashes(ctx, block)
	if err != nil {
		return 0, err
	}
	return uint64(len(hashes)), nil
}

// Lookup fetches a transaction and its receipt by hash. A missing receipt is not an error,
// the gas price then falls back to the declared fee fields.
func (r *Resolver) Lookup(ctx context.Context, txHash common.Hash) (*TransactionRecord, error) {
	txCtx, txCancel := r.callContext(ctx)
	defer txCancel()

	tx, err := r.client.GetTransactionByHash(txCtx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed fetching transaction %v: %w", txHash.Hex(), err)
	}

	receiptCtx, receiptCancel := r.callContext(ctx)
	defer receiptCancel()

	receipt, err := r.client.GetTransactionReceipt(receiptCtx, txHash)
	if err != nil {
		r.logger.WithError(err).Debugf("no receipt for %v", txHash.Hex())
		receipt = nil
	}

	return RecordFromTransaction(tx, receipt), nil
}

// GasDelta returns competitor minus original effective gas price in wei.
func GasDelta(original, competitor *GasPrice) *big.Int {
	if original == nil || competitor == nil || original.Wei == nil || competitor.Wei == nil {
		return nil
	}
	return new(big.Int).Sub(competitor.Wei, original.Wei)
}
