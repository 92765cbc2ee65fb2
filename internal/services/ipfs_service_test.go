// internal/services/ipfs_service_test.go
package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artdrm/artdrm-backend/internal/utils"
)

func TestPinBytesUsesFirstHealthyProvider(t *testing.T) {
	primary := &stubPinner{name: "pinata", uri: "ipfs://QmPrimary"}
	backup := &stubPinner{name: "nft.storage", uri: "ipfs://QmBackup"}
	svc := NewPinServiceFrom(utils.PinRetryPolicy, primary, backup)

	uri, err := svc.PinBytes(context.Background(), []byte("content"), "a.png")

	require.NoError(t, err)
	assert.Equal(t, "ipfs://QmPrimary", uri)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, backup.calls)
}

func TestPinBytesFallsThroughAfterRetries(t *testing.T) {
	primary := &stubPinner{name: "pinata", err: fmt.Errorf("rate limited")}
	backup := &stubPinner{name: "nft.storage", uri: "ipfs://QmBackup"}
	svc := NewPinServiceFrom(utils.PinRetryPolicy, primary, backup)

	uri, err := svc.PinBytes(context.Background(), []byte("content"), "a.png")

	require.NoError(t, err)
	assert.Equal(t, "ipfs://QmBackup", uri)
	// Each provider is retried per the pin policy before falling through.
	assert.Equal(t, utils.PinRetryPolicy.Attempts, primary.calls)
}

func TestPinBytesAllProvidersFail(t *testing.T) {
	primary := &stubPinner{name: "pinata", err: fmt.Errorf("rate limited")}
	backup := &stubPinner{name: "nft.storage", err: fmt.Errorf("bad token")}
	svc := NewPinServiceFrom(utils.PinRetryPolicy, primary, backup)

	_, err := svc.PinBytes(context.Background(), []byte("content"), "a.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all pinning providers failed")
}

func TestLocalPinnerIsDeterministic(t *testing.T) {
	pinner := localPinner{}

	first, err := pinner.PinBytes(context.Background(), []byte("content"), "a.png")
	require.NoError(t, err)
	second, err := pinner.PinBytes(context.Background(), []byte("content"), "b.png")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "ipfs://local-")

	other, err := pinner.PinBytes(context.Background(), []byte("different"), "a.png")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestPinJSON(t *testing.T) {
	svc := NewPinServiceFrom(utils.PinRetryPolicy, localPinner{})

	uri, err := svc.PinJSON(context.Background(), map[string]interface{}{"name": "Sunrise"}, "meta.json")

	require.NoError(t, err)
	assert.Contains(t, uri, "ipfs://local-")
}

func TestPinJSONRejectsUnmarshalable(t *testing.T) {
	svc := NewPinServiceFrom(utils.PinRetryPolicy, localPinner{})

	_, err := svc.PinJSON(context.Background(), map[string]interface{}{"fn": func() {}}, "meta.json")
	require.Error(t, err)
}
