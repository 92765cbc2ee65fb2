// internal/services/chain_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/artdrm/artdrm-backend/internal/config"
	"github.com/artdrm/artdrm-backend/internal/models"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

// Conservative gas limits used when simulation fails.
var defaultGasLimits = map[string]uint64{
	"register": 300000,
	"license":  250000,
	"revoke":   100000,
	"transfer": 200000,
	"sale":     50000,
}

const (
	// estimateBufferNum/Den apply a 1.3x safety margin to simulated gas.
	estimateBufferNum = 13
	estimateBufferDen = 10

	// gasQuoteTTL bounds how long a fee-market quote may be reused.
	// Nonces are never cached.
	gasQuoteTTL   = 15 * time.Second
	gasQuoteKey   = "artdrm:gas_quote"
	licenseFeeEth = 0.1
)

var (
	fallbackTip     = big.NewInt(1500000000) // 1.5 gwei
	hardcodedGasWei = utils.GweiToWei(40)
	demoGasWei      = utils.GweiToWei(30)
)

// FeeQuote is the fee-market snapshot a payload is priced with.
type FeeQuote struct {
	Mode     string   `json:"mode"` // "eip1559" or "legacy"
	GasPrice *big.Int `json:"gas_price,omitempty"`
	MaxFee   *big.Int `json:"max_fee,omitempty"`
	Tip      *big.Int `json:"tip,omitempty"`
}

// PerGas is the worst-case price per gas unit, used for balance checks.
func (q *FeeQuote) PerGas() *big.Int {
	if q.Mode == "eip1559" {
		return q.MaxFee
	}
	return q.GasPrice
}

// TxPayload is the unsigned transaction returned to the wallet, every
// numeric field hex-encoded the way JSON-RPC expects.
type TxPayload struct {
	To                   string `json:"to"`
	Data                 string `json:"data"`
	Value                string `json:"value"`
	Gas                  string `json:"gas"`
	Nonce                string `json:"nonce"`
	ChainID              string `json:"chainId"`
	GasPrice             string `json:"gasPrice,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
}

// ChainService prepares unsigned contract transactions and serves
// read-only chain queries. It never holds keys and never submits.
type ChainService struct {
	client   ChainClient
	cache    *redis.Client
	cfg      config.ChainConfig
	contract common.Address
}

func NewChainService(cfg config.ChainConfig, client ChainClient, cache *redis.Client) *ChainService {
	return &ChainService{
		client:   client,
		cache:    cache,
		cfg:      cfg,
		contract: common.HexToAddress(cfg.ContractAddress),
	}
}

// ContractAddress returns the registry address payloads are sent to.
func (s *ChainService) ContractAddress() common.Address {
	return s.contract
}

// FeeQuote resolves current gas pricing with the fallback ladder:
// EIP-1559 when the head block carries a base fee, legacy suggested price
// times 1.5 otherwise, and a 40 gwei constant when the node gives nothing.
// Demo mode always prices at 30 gwei.
func (s *ChainService) FeeQuote(ctx context.Context) *FeeQuote {
	if s.cfg.DemoMode {
		return &FeeQuote{Mode: "legacy", GasPrice: new(big.Int).Set(demoGasWei)}
	}

	if quote := s.cachedQuote(ctx); quote != nil {
		return quote
	}

	quote := s.freshQuote(ctx)
	s.storeQuote(ctx, quote)
	return quote
}

func (s *ChainService) freshQuote(ctx context.Context) *FeeQuote {
	header, err := s.client.HeaderByNumber(ctx, nil)
	if err == nil && header.BaseFee != nil {
		tip, tipErr := s.client.SuggestGasTipCap(ctx)
		if tipErr != nil || tip == nil || tip.Sign() <= 0 {
			tip = new(big.Int).Set(fallbackTip)
		}

		maxFee := new(big.Int).Mul(header.BaseFee, big.NewInt(2))
		maxFee.Add(maxFee, tip)

		if tip.Cmp(maxFee) >= 0 {
			tip = new(big.Int).Div(maxFee, big.NewInt(3))
		}

		return &FeeQuote{Mode: "eip1559", MaxFee: maxFee, Tip: tip}
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err == nil && gasPrice != nil && gasPrice.Sign() > 0 {
		bumped := new(big.Int).Mul(gasPrice, big.NewInt(3))
		bumped.Div(bumped, big.NewInt(2))
		return &FeeQuote{Mode: "legacy", GasPrice: bumped}
	}

	logrus.WithError(err).Warn("Fee market unavailable, using hardcoded gas price")
	return &FeeQuote{Mode: "legacy", GasPrice: new(big.Int).Set(hardcodedGasWei)}
}

func (s *ChainService) cachedQuote(ctx context.Context) *FeeQuote {
	if s.cache == nil {
		return nil
	}

	raw, err := s.cache.Get(ctx, gasQuoteKey).Bytes()
	if err != nil {
		return nil
	}

	var quote FeeQuote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil
	}
	return &quote
}

func (s *ChainService) storeQuote(ctx context.Context, quote *FeeQuote) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(quote)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, gasQuoteKey, raw, gasQuoteTTL).Err(); err != nil {
		logrus.WithError(err).Debug("Failed to cache gas quote")
	}
}

// prepare assembles the unsigned payload: fee quote, fresh pending nonce,
// gas estimation with buffer, balance check, hex encoding.
func (s *ChainService) prepare(ctx context.Context, op string, from, to common.Address, data []byte, value *big.Int) (*TxPayload, error) {
	if value == nil {
		value = big.NewInt(0)
	}

	chainID, err := s.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: chain id: %v", ErrChainUnavailable, err)
	}

	quote := s.FeeQuote(ctx)

	// Nonce must reflect the node's pending view at preparation time.
	nonce, err := s.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%w: pending nonce: %v", ErrChainUnavailable, err)
	}

	gasLimit := s.estimateGas(ctx, op, from, to, data, value)

	balance, err := s.client.BalanceAt(ctx, from, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: balance: %v", ErrChainUnavailable, err)
	}

	cost := new(big.Int).Mul(quote.PerGas(), new(big.Int).SetUint64(gasLimit))
	cost.Add(cost, value)
	if balance.Cmp(cost) < 0 {
		return nil, fmt.Errorf("%w: need %s wei, have %s wei",
			ErrInsufficientFunds, cost.String(), balance.String())
	}

	payload := &TxPayload{
		To:      to.Hex(),
		Data:    hexutil.Encode(data),
		Value:   hexutil.EncodeBig(value),
		Gas:     hexutil.EncodeUint64(gasLimit),
		Nonce:   hexutil.EncodeUint64(nonce),
		ChainID: hexutil.EncodeBig(chainID),
	}

	if quote.Mode == "eip1559" {
		payload.MaxFeePerGas = hexutil.EncodeBig(quote.MaxFee)
		payload.MaxPriorityFeePerGas = hexutil.EncodeBig(quote.Tip)
	} else {
		payload.GasPrice = hexutil.EncodeBig(quote.GasPrice)
	}

	return payload, nil
}

func (s *ChainService) estimateGas(ctx context.Context, op string, from, to common.Address, data []byte, value *big.Int) uint64 {
	msg := ethereum.CallMsg{From: from, To: &to, Data: data, Value: value}

	estimated, err := s.client.EstimateGas(ctx, msg)
	if err != nil {
		limit := defaultGasLimits[op]
		logrus.WithError(err).WithFields(logrus.Fields{
			"op":    op,
			"limit": limit,
		}).Warn("Gas estimation failed, using default limit")
		return limit
	}

	return estimated * estimateBufferNum / estimateBufferDen
}

// PrepareRegister builds the registerArtwork call.
func (s *ChainService) PrepareRegister(ctx context.Context, from common.Address, metadataURI string, royaltyBps int) (*TxPayload, error) {
	if royaltyBps < 0 || royaltyBps > models.MaxRoyaltyBps {
		return nil, fmt.Errorf("%w: royalty_bps must be within [0, %d]", ErrValidation, models.MaxRoyaltyBps)
	}

	data, err := artworkRegistryABI.Pack("registerArtwork", metadataURI, big.NewInt(int64(royaltyBps)))
	if err != nil {
		return nil, fmt.Errorf("pack registerArtwork: %w", err)
	}

	return s.prepare(ctx, "register", from, s.contract, data, nil)
}

// PrepareGrantLicense builds the payable grantLicense call carrying the
// fixed license fee.
func (s *ChainService) PrepareGrantLicense(ctx context.Context, from common.Address, tokenID uint64, licensee common.Address, durationDays int, termsHash string, licenseType models.LicenseType) (*TxPayload, error) {
	enum, ok := licenseType.ContractEnum()
	if !ok {
		return nil, fmt.Errorf("%w: unknown license type %q", ErrValidation, licenseType)
	}

	data, err := artworkRegistryABI.Pack("grantLicense",
		new(big.Int).SetUint64(tokenID), licensee,
		big.NewInt(int64(durationDays)), termsHash, enum)
	if err != nil {
		return nil, fmt.Errorf("pack grantLicense: %w", err)
	}

	fee, err := s.LicenseFeeWei(ctx)
	if err != nil {
		return nil, err
	}

	return s.prepare(ctx, "license", from, s.contract, data, fee)
}

// PrepareRevokeLicense builds the revokeLicense call.
func (s *ChainService) PrepareRevokeLicense(ctx context.Context, from common.Address, licenseID uint64) (*TxPayload, error) {
	data, err := artworkRegistryABI.Pack("revokeLicense", new(big.Int).SetUint64(licenseID))
	if err != nil {
		return nil, fmt.Errorf("pack revokeLicense: %w", err)
	}

	return s.prepare(ctx, "revoke", from, s.contract, data, nil)
}

// PrepareTransfer builds the transferArtwork call.
func (s *ChainService) PrepareTransfer(ctx context.Context, from common.Address, tokenID uint64, to common.Address) (*TxPayload, error) {
	data, err := artworkRegistryABI.Pack("transferArtwork", new(big.Int).SetUint64(tokenID), to)
	if err != nil {
		return nil, fmt.Errorf("pack transferArtwork: %w", err)
	}

	return s.prepare(ctx, "transfer", from, s.contract, data, nil)
}

// PrepareSale builds the buyer's direct value transfer to the seller. The
// calldata is the token id as a single 32-byte word so the payment can be
// tied back to the artwork.
func (s *ChainService) PrepareSale(ctx context.Context, buyer, seller common.Address, tokenID uint64, priceWei *big.Int) (*TxPayload, error) {
	if priceWei == nil || priceWei.Sign() <= 0 {
		return nil, fmt.Errorf("%w: sale price must be positive", ErrValidation)
	}

	data := make([]byte, 32)
	new(big.Int).SetUint64(tokenID).FillBytes(data)

	return s.prepare(ctx, "sale", buyer, seller, data, priceWei)
}

// LicenseFeeWei reads LICENSE_FEE from the contract, falling back to the
// fixed 0.1 ETH constant when the read fails.
func (s *ChainService) LicenseFeeWei(ctx context.Context) (*big.Int, error) {
	data, err := artworkRegistryABI.Pack("LICENSE_FEE")
	if err != nil {
		return nil, fmt.Errorf("pack LICENSE_FEE: %w", err)
	}

	out, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &s.contract, Data: data}, nil)
	if err != nil || len(out) == 0 {
		return utils.EtherToWei(licenseFeeEth), nil
	}

	vals, err := artworkRegistryABI.Unpack("LICENSE_FEE", out)
	if err != nil || len(vals) != 1 {
		return utils.EtherToWei(licenseFeeEth), nil
	}

	fee, ok := vals[0].(*big.Int)
	if !ok {
		return utils.EtherToWei(licenseFeeEth), nil
	}
	return fee, nil
}

// ChainStatus summarizes node reachability for the status endpoint.
type ChainStatus struct {
	Connected      bool   `json:"connected"`
	ChainID        string `json:"chain_id,omitempty"`
	Network        string `json:"network"`
	ContractLoaded bool   `json:"contract_loaded"`
	DemoMode       bool   `json:"demo_mode"`
}

func (s *ChainService) Status(ctx context.Context) *ChainStatus {
	status := &ChainStatus{Network: s.cfg.Network, DemoMode: s.cfg.DemoMode}

	chainID, err := s.client.ChainID(ctx)
	if err != nil {
		return status
	}
	status.Connected = true
	status.ChainID = chainID.String()

	code, err := s.client.CodeAt(ctx, s.contract, nil)
	status.ContractLoaded = err == nil && len(code) > 0

	return status
}

// OnChainArtwork mirrors getArtworkInfo's return values.
type OnChainArtwork struct {
	TokenID     uint64 `json:"token_id"`
	Creator     string `json:"creator"`
	Owner       string `json:"owner"`
	MetadataURI string `json:"metadata_uri"`
	RoyaltyBps  int64  `json:"royalty_bps"`
	IsLicensed  bool   `json:"is_licensed"`
}

func (s *ChainService) ArtworkInfo(ctx context.Context, tokenID uint64) (*OnChainArtwork, error) {
	data, err := artworkRegistryABI.Pack("getArtworkInfo", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return nil, fmt.Errorf("pack getArtworkInfo: %w", err)
	}

	out, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &s.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: getArtworkInfo(%d): %v", ErrNotFound, tokenID, err)
	}

	vals, err := artworkRegistryABI.Unpack("getArtworkInfo", out)
	if err != nil || len(vals) != 5 {
		return nil, fmt.Errorf("decode getArtworkInfo: %w", err)
	}

	return &OnChainArtwork{
		TokenID:     tokenID,
		Creator:     vals[0].(common.Address).Hex(),
		Owner:       vals[1].(common.Address).Hex(),
		MetadataURI: vals[2].(string),
		RoyaltyBps:  vals[3].(*big.Int).Int64(),
		IsLicensed:  vals[4].(bool),
	}, nil
}

func (s *ChainService) OwnerOf(ctx context.Context, tokenID uint64) (common.Address, error) {
	data, err := artworkRegistryABI.Pack("ownerOf", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return common.Address{}, fmt.Errorf("pack ownerOf: %w", err)
	}

	out, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &s.contract, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: ownerOf(%d): %v", ErrNotFound, tokenID, err)
	}

	vals, err := artworkRegistryABI.Unpack("ownerOf", out)
	if err != nil || len(vals) != 1 {
		return common.Address{}, fmt.Errorf("decode ownerOf: %w", err)
	}

	return vals[0].(common.Address), nil
}

// Receipt fetches a transaction receipt; ErrNotFound when the chain has
// not seen the hash yet.
func (s *ChainService) Receipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	normalized, err := utils.NormalizeTxHash(txHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	receipt, err := s.client.TransactionReceipt(ctx, common.HexToHash(normalized))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("%w: receipt for %s", ErrNotFound, normalized)
		}
		return nil, fmt.Errorf("%w: receipt: %v", ErrChainUnavailable, err)
	}
	return receipt, nil
}

// RegisteredTokenID extracts the token id from the ArtworkRegistered
// event in a registration receipt.
func (s *ChainService) RegisteredTokenID(receipt *types.Receipt) (uint64, error) {
	eventID := artworkRegistryABI.Events["ArtworkRegistered"].ID

	for _, log := range receipt.Logs {
		if len(log.Topics) >= 2 && log.Topics[0] == eventID {
			return new(big.Int).SetBytes(log.Topics[1].Bytes()).Uint64(), nil
		}
	}

	return 0, fmt.Errorf("%w: no ArtworkRegistered event in receipt", ErrValidation)
}
