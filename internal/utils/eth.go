// internal/utils/eth.go
package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

// ChecksumAddress validates a hex address and returns its EIP-55
// checksummed form.
func ChecksumAddress(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("invalid ethereum address: %q", addr)
	}
	return common.HexToAddress(addr).Hex(), nil
}

// NormalizeAddress returns the lowercase hex form used for storage and
// lookups. Address columns are compared case-insensitively this way.
func NormalizeAddress(addr string) (string, error) {
	checksummed, err := ChecksumAddress(addr)
	if err != nil {
		return "", err
	}
	return strings.ToLower(checksummed), nil
}

// NormalizeTxHash lowercases a 0x-prefixed 66-char transaction hash.
func NormalizeTxHash(hash string) (string, error) {
	if !txHashPattern.MatchString(hash) {
		return "", fmt.Errorf("invalid transaction hash: %q", hash)
	}
	return strings.ToLower(hash), nil
}

// EtherToWei converts a decimal ether amount to wei without float drift.
func EtherToWei(ether float64) *big.Int {
	f := new(big.Float).SetFloat64(ether)
	f.Mul(f, new(big.Float).SetInt(big.NewInt(params.Ether)))
	wei, _ := f.Int(nil)
	return wei
}

// WeiToEther renders wei as a decimal ether string for display.
func WeiToEther(wei *big.Int) string {
	f := new(big.Float).SetInt(wei)
	f.Quo(f, new(big.Float).SetInt(big.NewInt(params.Ether)))
	return f.Text('f', 6)
}

// GweiToWei converts whole gwei to wei.
func GweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(params.GWei))
}
