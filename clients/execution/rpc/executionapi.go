package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/ethpandaops/txrace/clients/sshtunnel"
	"github.com/ethpandaops/txrace/types"
)

type ExecutionClient struct {
	name      string
	endpoint  string
	headers   map[string]string
	sshtunnel *sshtunnel.Tunnel
	rpcClient *rpc.Client
}

// NewExecutionClient is used to create a new execution client
func NewExecutionClient(name, endpoint string, headers map[string]string, sshcfg *types.SshConfig, logger logrus.FieldLogger) (*ExecutionClient, error) {
	client := &ExecutionClient{
		name:     name,
		endpoint: endpoint,
		headers:  headers,
	}

	if sshcfg != nil && sshcfg.Host != "" {
		// create ssh tunnel to remote host
		sshPort := 0
		if sshcfg.Port != "" {
			sshPort, _ = strconv.Atoi(sshcfg.Port)
		}
		if sshPort == 0 {
			sshPort = 22
		}
		sshEndpoint := fmt.Sprintf("%v@%v:%v", sshcfg.User, sshcfg.Host, sshPort)
		var sshAuth ssh.AuthMethod
		if sshcfg.Keyfile != "" {
			var err error
			sshAuth, err = sshtunnel.PrivateKeyFile(sshcfg.Keyfile)
			if err != nil {
				return nil, fmt.Errorf("could not load ssh keyfile: %w", err)
			}
		} else {
			sshAuth = ssh.Password(sshcfg.Password)
		}

		// get tunnel target from endpoint url
		endpointUrl, err := url.Parse(endpoint)
		if err != nil || endpointUrl.Host == "" {
			return nil, fmt.Errorf("ssh tunnel requires a http or ws endpoint url, got %q", endpoint)
		}
		tunTarget := endpointUrl.Hostname()
		if endpointUrl.Port() != "" {
			tunTarget = fmt.Sprintf("%v:%v", tunTarget, endpointUrl.Port())
		} else {
			tunTargetPort := 80
			if endpointUrl.Scheme == "https" || endpointUrl.Scheme == "wss" {
				tunTargetPort = 443
			}
			tunTarget = fmt.Sprintf("%v:%v", tunTarget, tunTargetPort)
		}

		hostKeyCallback, err := sshtunnel.HostKeyCallback(sshcfg.KnownHosts)
		if err != nil {
			return nil, err
		}

		client.sshtunnel = sshtunnel.NewTunnel(sshEndpoint, sshAuth, hostKeyCallback, tunTarget, logger.WithField("sshtun", sshcfg.Host))
		err = client.sshtunnel.Start()
		if err != nil {
			return nil, fmt.Errorf("could not start ssh tunnel: %w", err)
		}

		// override endpoint to use local tunnel end
		endpointUrl.Host = fmt.Sprintf("localhost:%v", client.sshtunnel.Local.Port)

		client.endpoint = endpointUrl.String()
	}

	return client, nil
}

func (ec *ExecutionClient) Initialize(ctx context.Context) error {
	if ec.rpcClient != nil {
		return nil
	}

	rpcClient, err := rpc.DialContext(ctx, ec.endpoint)
	if err != nil {
		return err
	}

	for hKey, hVal := range ec.headers {
		rpcClient.SetHeader(hKey, hVal)
	}

	ec.rpcClient = rpcClient

	return nil
}

func (ec *ExecutionClient) Close() {
	if ec.rpcClient != nil {
		ec.rpcClient.Close()
		ec.rpcClient = nil
	}
	if ec.sshtunnel != nil {
		ec.sshtunnel.Stop()
	}
}

func (ec *ExecutionClient) GetName() string {
	return ec.name
}

// GetEndpoint returns the effective endpoint, which is the local tunnel end when a ssh tunnel is used.
func (ec *ExecutionClient) GetEndpoint() string {
	return ec.endpoint
}

func (ec *ExecutionClient) GetClientVersion(ctx context.Context) (string, error) {
	var result string
	err := ec.rpcClient.CallContext(ctx, &result, "web3_clientVersion")

	return result, err
}

func (ec *ExecutionClient) GetNodeSyncing(ctx context.Context) (*SyncStatus, error) {
	var raw json.RawMessage
	err := ec.rpcClient.CallContext(ctx, &raw, "eth_syncing")
	if err != nil {
		return nil, err
	}

	var syncing bool
	if err := json.Unmarshal(raw, &syncing); err == nil {
		// false when not syncing
		return &SyncStatus{}, nil
	}

	var progress struct {
		StartingBlock LenientUint64 `json:"startingBlock"`
		CurrentBlock  LenientUint64 `json:"currentBlock"`
		HighestBlock  LenientUint64 `json:"highestBlock"`
	}
	if err := json.Unmarshal(raw, &progress); err != nil {
		return nil, fmt.Errorf("failed to parse eth_syncing response: %w", err)
	}

	return &SyncStatus{
		IsSyncing:     true,
		StartingBlock: uint64(progress.StartingBlock),
		CurrentBlock:  uint64(progress.CurrentBlock),
		HighestBlock:  uint64(progress.HighestBlock),
	}, nil
}

// GetTransactionByHash fetches a transaction as raw json so unknown transaction types still decode.
func (ec *ExecutionClient) GetTransactionByHash(ctx context.Context, txHash common.Hash) (*Transaction, error) {
	var tx *Transaction
	err := ec.rpcClient.CallContext(ctx, &tx, "eth_getTransactionByHash", txHash)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ethereum.NotFound
	}

	return tx, nil
}

// GetBlockTransactionHashes returns the ordered transaction hashes of a block.
func (ec *ExecutionClient) GetBlockTransactionHashes(ctx context.Context, number uint64) ([]common.Hash, error) {
	var block *BlockTransactionHashes
	err := ec.rpcClient.CallContext(ctx, &block, "eth_getBlockByNumber", hexutil.EncodeUint64(number), false)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, ethereum.NotFound
	}

	return block.Transactions, nil
}

func (ec *ExecutionClient) GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	var receipt *Receipt
	err := ec.rpcClient.CallContext(ctx, &receipt, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, ethereum.NotFound
	}

	return receipt, nil
}
