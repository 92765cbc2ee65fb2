// internal/services/chain_service_test.go
package services

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artdrm/artdrm-backend/internal/config"
	"github.com/artdrm/artdrm-backend/internal/models"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

var (
	testContract = "0x00000000000000000000000000000000000000aa"
	testWallet   = common.HexToAddress("0x8ba1f109551bD432803012645Ac136ddd64DBA72")
)

func newTestChainService(client ChainClient) *ChainService {
	cfg := config.ChainConfig{Network: "sepolia", ContractAddress: testContract}
	return NewChainService(cfg, client, nil)
}

func TestFeeQuoteEIP1559(t *testing.T) {
	client := NewDemoChainClient()
	svc := newTestChainService(client)

	quote := svc.FeeQuote(context.Background())

	require.Equal(t, "eip1559", quote.Mode)
	// maxFee = base(10 gwei) * 2 + tip(1 gwei)
	assert.Equal(t, utils.GweiToWei(21).String(), quote.MaxFee.String())
	assert.Equal(t, utils.GweiToWei(1).String(), quote.Tip.String())
}

func TestFeeQuoteTipClampedWhenAboveMaxFee(t *testing.T) {
	client := NewDemoChainClient()
	client.SetBaseFee(big.NewInt(0))
	svc := newTestChainService(client)

	quote := svc.FeeQuote(context.Background())

	require.Equal(t, "eip1559", quote.Mode)
	// base 0 makes maxFee equal the tip, which forces the clamp.
	clamped := new(big.Int).Mul(quote.Tip, big.NewInt(3))
	assert.True(t, clamped.Cmp(quote.MaxFee) <= 0, "tip %s exceeds maxFee/3 of %s", quote.Tip, quote.MaxFee)
}

func TestFeeQuoteLegacyFallback(t *testing.T) {
	client := NewDemoChainClient()
	client.SetBaseFee(nil) // pre-London chain
	svc := newTestChainService(client)

	quote := svc.FeeQuote(context.Background())

	require.Equal(t, "legacy", quote.Mode)
	// suggested 30 gwei bumped by 1.5x
	assert.Equal(t, utils.GweiToWei(45).String(), quote.GasPrice.String())
}

// feeBlindClient simulates a node whose fee-market RPCs all fail while
// the rest of the surface still works.
type feeBlindClient struct {
	*DemoChainClient
}

func (f *feeBlindClient) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return nil, fmt.Errorf("rpc timeout")
}

func (f *feeBlindClient) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return nil, fmt.Errorf("rpc timeout")
}

func (f *feeBlindClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	return nil, fmt.Errorf("rpc timeout")
}

func TestFeeQuoteHardcodedFallback(t *testing.T) {
	svc := newTestChainService(&feeBlindClient{NewDemoChainClient()})

	quote := svc.FeeQuote(context.Background())

	require.Equal(t, "legacy", quote.Mode)
	assert.Equal(t, utils.GweiToWei(40).String(), quote.GasPrice.String())
}

func TestPrepareRegisterSucceedsWithoutFeeMarket(t *testing.T) {
	svc := newTestChainService(&feeBlindClient{NewDemoChainClient()})

	payload, err := svc.PrepareRegister(context.Background(), testWallet, "ipfs://meta", 500)

	require.NoError(t, err)
	assert.Equal(t, "0x9502f9000", payload.GasPrice) // 40 gwei
	assert.Empty(t, payload.MaxFeePerGas)
}

func TestFeeQuoteDemoMode(t *testing.T) {
	cfg := config.ChainConfig{Network: "local", ContractAddress: testContract, DemoMode: true}
	svc := NewChainService(cfg, NewDemoChainClient(), nil)

	quote := svc.FeeQuote(context.Background())

	require.Equal(t, "legacy", quote.Mode)
	assert.Equal(t, utils.GweiToWei(30).String(), quote.GasPrice.String())
}

func TestFeeQuoteCachedInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	client := NewDemoChainClient()
	client.SetBaseFee(nil) // legacy quote first
	cfg := config.ChainConfig{Network: "sepolia", ContractAddress: testContract}
	svc := NewChainService(cfg, client, cache)

	first := svc.FeeQuote(context.Background())
	require.Equal(t, "legacy", first.Mode)

	// A fresh quote would now be EIP-1559, but the cache still serves
	// the legacy one.
	client.SetBaseFee(utils.GweiToWei(10))
	second := svc.FeeQuote(context.Background())
	assert.Equal(t, "legacy", second.Mode)

	mr.FastForward(16 * time.Second)
	third := svc.FeeQuote(context.Background())
	assert.Equal(t, "eip1559", third.Mode)
}

func TestPrepareRegisterPayload(t *testing.T) {
	client := NewDemoChainClient()
	client.SetNonce(testWallet, 7)
	svc := newTestChainService(client)

	payload, err := svc.PrepareRegister(context.Background(), testWallet, "ipfs://meta", 500)

	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testContract).Hex(), payload.To)
	assert.Equal(t, "0x7", payload.Nonce)
	assert.Equal(t, "0x7a69", payload.ChainID) // 31337
	assert.Equal(t, "0x0", payload.Value)
	assert.NotEmpty(t, payload.MaxFeePerGas)
	assert.NotEmpty(t, payload.MaxPriorityFeePerGas)
	assert.Empty(t, payload.GasPrice)
	assert.NotEqual(t, "0x", payload.Data)
}

func TestPrepareRegisterRejectsRoyaltyOutOfRange(t *testing.T) {
	svc := newTestChainService(NewDemoChainClient())

	_, err := svc.PrepareRegister(context.Background(), testWallet, "ipfs://meta", models.MaxRoyaltyBps+1)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.PrepareRegister(context.Background(), testWallet, "ipfs://meta", -1)
	require.ErrorIs(t, err, ErrValidation)
}

func TestPrepareInsufficientFunds(t *testing.T) {
	client := NewDemoChainClient()
	client.SetBalance(testWallet, big.NewInt(1))
	svc := newTestChainService(client)

	_, err := svc.PrepareRegister(context.Background(), testWallet, "ipfs://meta", 500)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestPrepareGrantLicenseCarriesFee(t *testing.T) {
	svc := newTestChainService(NewDemoChainClient())

	payload, err := svc.PrepareGrantLicense(context.Background(), testWallet, 1,
		common.HexToAddress("0x00000000000000000000000000000000000000bb"),
		30, "ipfs://terms", models.LicenseTypePersonal)

	require.NoError(t, err)
	// 0.1 ETH in hex wei
	assert.Equal(t, "0x16345785d8a0000", payload.Value)
}

func TestPrepareGrantLicenseUnknownType(t *testing.T) {
	svc := newTestChainService(NewDemoChainClient())

	_, err := svc.PrepareGrantLicense(context.Background(), testWallet, 1,
		common.HexToAddress("0x00000000000000000000000000000000000000bb"),
		30, "ipfs://terms", models.LicenseType("UNLIMITED"))

	require.ErrorIs(t, err, ErrValidation)
}

func TestPrepareSaleEncodesTokenWord(t *testing.T) {
	svc := newTestChainService(NewDemoChainClient())
	seller := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	payload, err := svc.PrepareSale(context.Background(), testWallet, seller, 5, utils.EtherToWei(1))

	require.NoError(t, err)
	assert.Equal(t, seller.Hex(), payload.To)
	assert.Equal(t, "0x"+fmt.Sprintf("%064x", 5), payload.Data)
}

func TestPrepareSaleRejectsNonPositivePrice(t *testing.T) {
	svc := newTestChainService(NewDemoChainClient())
	seller := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	_, err := svc.PrepareSale(context.Background(), testWallet, seller, 5, big.NewInt(0))
	require.ErrorIs(t, err, ErrValidation)
}

func TestLicenseFeeFallsBackToConstant(t *testing.T) {
	svc := newTestChainService(&feeBlindClient{NewDemoChainClient()})

	fee, err := svc.LicenseFeeWei(context.Background())
	require.NoError(t, err)
	assert.Equal(t, utils.EtherToWei(0.1).String(), fee.String())
}

func TestStatusAndReads(t *testing.T) {
	client := NewDemoChainClient()
	client.AddArtwork(3, testWallet, testWallet, "ipfs://meta", 500, false)
	svc := newTestChainService(client)

	status := svc.Status(context.Background())
	assert.True(t, status.Connected)
	assert.True(t, status.ContractLoaded)
	assert.Equal(t, "31337", status.ChainID)

	info, err := svc.ArtworkInfo(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), info.TokenID)
	assert.Equal(t, testWallet.Hex(), info.Owner)
	assert.Equal(t, int64(500), info.RoyaltyBps)

	owner, err := svc.OwnerOf(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, testWallet, owner)

	_, err = svc.ArtworkInfo(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReceiptNotFound(t *testing.T) {
	svc := newTestChainService(NewDemoChainClient())

	_, err := svc.Receipt(context.Background(), "0x"+fmt.Sprintf("%064x", 1))
	require.ErrorIs(t, err, ErrNotFound)
}
