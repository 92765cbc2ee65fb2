// internal/services/chain_client.go
package services

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/artdrm/artdrm-backend/internal/config"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

// ChainClient is the slice of the Ethereum JSON-RPC surface the backend
// actually uses. *ethclient.Client satisfies it; demo mode substitutes an
// in-memory implementation.
type ChainClient interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// DialChainClient connects to the configured RPC endpoint, or returns the
// in-memory demo client when demo mode is enabled.
func DialChainClient(ctx context.Context, cfg config.ChainConfig) (ChainClient, error) {
	if cfg.DemoMode {
		return NewDemoChainClient(), nil
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}
	return client, nil
}

// demoChainID matches a local hardhat node.
var demoChainID = big.NewInt(31337)

type demoArtwork struct {
	creator     common.Address
	owner       common.Address
	metadataURI string
	royaltyBps  *big.Int
	isLicensed  bool
}

// DemoChainClient simulates just enough of a node for preparation flows
// and tests: per-address pending nonces, balances, receipts, and contract
// reads against an in-memory artwork registry.
type DemoChainClient struct {
	mtx      sync.Mutex
	nonces   map[common.Address]uint64
	balances map[common.Address]*big.Int
	receipts map[common.Hash]*types.Receipt
	artworks map[uint64]*demoArtwork
	baseFee  *big.Int
	tip      *big.Int
	gasPrice *big.Int
}

func NewDemoChainClient() *DemoChainClient {
	return &DemoChainClient{
		nonces:   make(map[common.Address]uint64),
		balances: make(map[common.Address]*big.Int),
		receipts: make(map[common.Hash]*types.Receipt),
		artworks: make(map[uint64]*demoArtwork),
		baseFee:  utils.GweiToWei(10),
		tip:      utils.GweiToWei(1),
		gasPrice: utils.GweiToWei(30),
	}
}

// SetBalance overrides the default funded balance for an account.
func (d *DemoChainClient) SetBalance(account common.Address, wei *big.Int) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.balances[account] = new(big.Int).Set(wei)
}

// SetNonce sets the pending nonce reported for an account.
func (d *DemoChainClient) SetNonce(account common.Address, nonce uint64) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.nonces[account] = nonce
}

// SetBaseFee controls whether headers advertise EIP-1559 support. A nil
// base fee makes the demo chain look pre-London.
func (d *DemoChainClient) SetBaseFee(wei *big.Int) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.baseFee = wei
}

// AddReceipt records a receipt for a hash, used by confirmation flows.
func (d *DemoChainClient) AddReceipt(txHash common.Hash, receipt *types.Receipt) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.receipts[txHash] = receipt
}

// AddArtwork seeds the in-memory registry backing contract reads.
func (d *DemoChainClient) AddArtwork(tokenID uint64, creator, owner common.Address, metadataURI string, royaltyBps int64, isLicensed bool) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.artworks[tokenID] = &demoArtwork{
		creator:     creator,
		owner:       owner,
		metadataURI: metadataURI,
		royaltyBps:  big.NewInt(royaltyBps),
		isLicensed:  isLicensed,
	}
}

func (d *DemoChainClient) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	header := &types.Header{Number: big.NewInt(1)}
	if d.baseFee != nil {
		header.BaseFee = new(big.Int).Set(d.baseFee)
	}
	return header, nil
}

func (d *DemoChainClient) SuggestGasTipCap(_ context.Context) (*big.Int, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return new(big.Int).Set(d.tip), nil
}

func (d *DemoChainClient) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return new(big.Int).Set(d.gasPrice), nil
}

func (d *DemoChainClient) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.nonces[account], nil
}

func (d *DemoChainClient) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if bal, ok := d.balances[account]; ok {
		return new(big.Int).Set(bal), nil
	}
	// Unseeded accounts come funded with 10 ETH so demo flows just work.
	return utils.EtherToWei(10), nil
}

func (d *DemoChainClient) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	if len(msg.Data) == 0 {
		return 21000, nil
	}
	return 21000 + uint64(len(msg.Data))*68, nil
}

func (d *DemoChainClient) ChainID(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(demoChainID), nil
}

func (d *DemoChainClient) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if receipt, ok := d.receipts[txHash]; ok {
		return receipt, nil
	}
	return nil, ethereum.NotFound
}

func (d *DemoChainClient) CodeAt(_ context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

// CallContract answers the registry's view methods from in-memory state.
func (d *DemoChainClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if len(msg.Data) < 4 {
		return nil, fmt.Errorf("malformed calldata")
	}

	method, err := artworkRegistryABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}

	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "getArtworkInfo":
		tokenID := args[0].(*big.Int).Uint64()
		art, ok := d.artworks[tokenID]
		if !ok {
			return nil, fmt.Errorf("execution reverted: artwork %d not registered", tokenID)
		}
		return method.Outputs.Pack(art.creator, art.owner, art.metadataURI, art.royaltyBps, art.isLicensed)

	case "ownerOf":
		tokenID := args[0].(*big.Int).Uint64()
		art, ok := d.artworks[tokenID]
		if !ok {
			return nil, fmt.Errorf("execution reverted: artwork %d not registered", tokenID)
		}
		return method.Outputs.Pack(art.owner)

	case "LICENSE_FEE":
		return method.Outputs.Pack(utils.EtherToWei(0.1))
	}

	return nil, fmt.Errorf("unsupported method %s", method.Name)
}
