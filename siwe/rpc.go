package siwe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// EthChains resolves chain ids to JSON-RPC endpoints. Clients are dialled
// lazily on first use and reused afterwards.
type EthChains struct {
	urls    map[uint64]string
	timeout time.Duration

	mu      sync.Mutex
	callers map[uint64]*ethCaller
}

var _ ChainResolver = (*EthChains)(nil)

// NewEthChains returns a resolver over urls (chain id -> RPC URL). A positive
// timeout bounds each RPC call.
func NewEthChains(urls map[uint64]string, timeout time.Duration) *EthChains {
	cp := make(map[uint64]string, len(urls))
	for id, u := range urls {
		cp[id] = u
	}
	return &EthChains{urls: cp, timeout: timeout, callers: make(map[uint64]*ethCaller)}
}

func (c *EthChains) Caller(ctx context.Context, chainID uint64) (ContractCaller, error) {
	url, ok := c.urls[chainID]
	if !ok || url == "" {
		return nil, ErrUnconfiguredChain
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ec, ok := c.callers[chainID]; ok {
		return ec, nil
	}
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial chain %d: %w", chainID, err)
	}
	ec := &ethCaller{rpc: rc, eth: ethclient.NewClient(rc), timeout: c.timeout}
	c.callers[chainID] = ec
	return ec, nil
}

// Close releases all dialled clients.
func (c *EthChains) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ec := range c.callers {
		ec.rpc.Close()
		delete(c.callers, id)
	}
}

type ethCaller struct {
	rpc     *rpc.Client
	eth     *ethclient.Client
	timeout time.Duration
}

func (e *ethCaller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *ethCaller) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.eth.CodeAt(ctx, account, nil)
}

func (e *ethCaller) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

type simCallArg struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

type simBlockArg struct {
	Calls []simCallArg `json:"calls"`
}

type simOpts struct {
	BlockStateCalls []simBlockArg `json:"blockStateCalls"`
}

type simCallResult struct {
	ReturnData hexutil.Bytes  `json:"returnData"`
	Status     hexutil.Uint64 `json:"status"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type simBlockResult struct {
	Calls []simCallResult `json:"calls"`
}

// SimulateCalls runs calls through eth_simulateV1 in one block on top of latest state.
func (e *ethCaller) SimulateCalls(ctx context.Context, calls []SimCall) ([]SimResult, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	block := simBlockArg{Calls: make([]simCallArg, len(calls))}
	for i, c := range calls {
		block.Calls[i] = simCallArg{To: c.To, Data: c.Data}
	}
	var out []simBlockResult
	if err := e.rpc.CallContext(ctx, &out, "eth_simulateV1", simOpts{BlockStateCalls: []simBlockArg{block}}, "latest"); err != nil {
		if methodUnsupported(err) {
			return nil, fmt.Errorf("%w: %v", ErrSimulateUnsupported, err)
		}
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("eth_simulateV1: got %d blocks", len(out))
	}
	res := make([]SimResult, len(out[0].Calls))
	for i, c := range out[0].Calls {
		res[i] = SimResult{ReturnData: c.ReturnData, Success: c.Status == 1}
		if c.Error != nil {
			res[i].Error = c.Error.Message
		}
	}
	return res, nil
}

// CallDeployless executes code as a contract creation inside eth_call.
func (e *ethCaller) CallDeployless(ctx context.Context, code []byte) ([]byte, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.eth.CallContract(ctx, ethereum.CallMsg{Data: code}, nil)
}

// methodNotFound is the JSON-RPC error code for an unknown method.
const methodNotFound = -32601

func methodUnsupported(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == methodNotFound {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"method not found", "does not exist", "not supported", "not available", "unsupported method"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
