package valueflow

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ethpandaops/txrace/clients/execution/rpc"
)

// DepthPolicy selects which frames of a call tree are summed.
type DepthPolicy uint8

const (
	// DirectCalls sums the immediate sub-calls of the root frame only.
	DirectCalls DepthPolicy = iota
	// Recursive sums every descendant of the root frame. Value forwarded through an
	// intermediate contract is counted at every hop.
	Recursive
)

// DefaultMaxDepth matches the evm call depth limit.
const DefaultMaxDepth = 1024

func ParseDepthPolicy(s string) (DepthPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct":
		return DirectCalls, nil
	case "recursive":
		return Recursive, nil
	default:
		return DirectCalls, fmt.Errorf("unknown depth policy: %v", s)
	}
}

func (p DepthPolicy) String() string {
	switch p {
	case DirectCalls:
		return "direct"
	case Recursive:
		return "recursive"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

// Accumulator sums value sent to a target address within a call trace.
type Accumulator struct {
	target   common.Address
	policy   DepthPolicy
	maxDepth int
}

func NewAccumulator(target common.Address, policy DepthPolicy, maxDepth int) *Accumulator {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Accumulator{
		target:   target,
		policy:   policy,
		maxDepth: maxDepth,
	}
}

func (acc *Accumulator) Target() common.Address {
	return acc.target
}

func (acc *Accumulator) Policy() DepthPolicy {
	return acc.policy
}

type stackEntry struct {
	frame *rpc.CallTraceCall
	depth int
}

// Sum returns the total value of frames below root whose destination is the target.
// The root frame itself is the simulated call and never counts. The tree is walked
// with an explicit stack, frames deeper than maxDepth are ignored. The sum saturates
// at 2^256-1.
func (acc *Accumulator) Sum(root *rpc.CallTraceCall) *uint256.Int {
	total := new(uint256.Int)
	if root == nil {
		return total
	}

	if acc.policy == DirectCalls {
		for i := range root.Calls {
			acc.add(total, &root.Calls[i])
		}
		return total
	}

	stack := make([]stackEntry, 0, len(root.Calls))
	for i := len(root.Calls) - 1; i >= 0; i-- {
		stack = append(stack, stackEntry{frame: &root.Calls[i], depth: 1})
	}

	for len(stack) > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		acc.add(total, entry.frame)

		if entry.depth >= acc.maxDepth {
			continue
		}
		for i := len(entry.frame.Calls) - 1; i >= 0; i-- {
			stack = append(stack, stackEntry{frame: &entry.frame.Calls[i], depth: entry.depth + 1})
		}
	}

	return total
}

func (acc *Accumulator) add(total *uint256.Int, frame *rpc.CallTraceCall) {
	if !frame.IsTo(acc.target) {
		return
	}

	if _, overflow := total.AddOverflow(total, frame.Value.Uint256()); overflow {
		total.SetAllOne()
	}
}
