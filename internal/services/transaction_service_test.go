// internal/services/transaction_service_test.go
package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/artdrm/artdrm-backend/internal/models"
)

func testTxHash(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

func newTestTransactionService(t *testing.T, db *gorm.DB, client ChainClient) *TransactionService {
	t.Helper()
	if client == nil {
		client = NewDemoChainClient()
	}
	return NewTransactionService(db, newTestChainService(client))
}

func registrationInput(hash string) CreateTransactionInput {
	return CreateTransactionInput{
		TxHash:      hash,
		FromAddress: testOwner,
		ToAddress:   testContract,
		TxType:      models.TransactionTypeRegistration,
	}
}

func TestCreateTransaction(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTransactionService(t, db, nil)

	record, created, err := svc.Create(registrationInput(testTxHash(1)))

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, testTxHash(1), record.TxHash)
	assert.Equal(t, models.TransactionStatusPending, record.Status)
}

func TestCreateTransactionIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTransactionService(t, db, nil)

	first, created, err := svc.Create(registrationInput(testTxHash(1)))
	require.NoError(t, err)
	require.True(t, created)

	tokenID := uint64(7)
	input := registrationInput(testTxHash(1))
	input.TokenID = &tokenID
	input.Metadata = models.JSONB{"note": "resubmitted"}

	second, created, err := svc.Create(input)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	stored, err := svc.GetByHash(testTxHash(1))
	require.NoError(t, err)
	require.NotNil(t, stored.TokenID)
	assert.Equal(t, uint64(7), *stored.TokenID)
}

func TestCreateTransactionNormalizesHash(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTransactionService(t, db, nil)

	upper := "0x" + "ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789"
	record, _, err := svc.Create(registrationInput(upper))

	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789", record.TxHash)
}

func TestCreateTransactionRejectsBadHash(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTransactionService(t, db, nil)

	_, _, err := svc.Create(registrationInput("0xdeadbeef"))
	require.ErrorIs(t, err, ErrValidation)
}

func TestListTransactionsByAddress(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTransactionService(t, db, nil)

	// testOwner appears as sender in one record and recipient in another.
	inputs := []CreateTransactionInput{
		{TxHash: testTxHash(1), FromAddress: testOwner, ToAddress: testLicensee, TxType: models.TransactionTypeRegistration},
		{TxHash: testTxHash(2), FromAddress: testOther, ToAddress: testOwner, TxType: models.TransactionTypeSale},
		{TxHash: testTxHash(3), FromAddress: testOther, ToAddress: testLicensee, TxType: models.TransactionTypeTransfer},
	}
	for _, input := range inputs {
		_, _, err := svc.Create(input)
		require.NoError(t, err)
	}

	result, err := svc.List(TransactionFilters{Address: testOwner}, testParams())
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)

	result, err = svc.List(TransactionFilters{TxType: models.TransactionTypeSale}, testParams())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
}

func TestUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTransactionService(t, db, nil)

	_, _, err := svc.Create(registrationInput(testTxHash(1)))
	require.NoError(t, err)

	record, err := svc.UpdateStatus(testTxHash(1), models.TransactionStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusConfirmed, record.Status)

	_, err = svc.UpdateStatus(testTxHash(1), models.TransactionStatusPending)
	require.ErrorIs(t, err, ErrValidation)
}

func TestSyncFromChain(t *testing.T) {
	db := newTestDB(t)
	client := NewDemoChainClient()
	client.AddReceipt(common.HexToHash(testTxHash(1)), &types.Receipt{Status: types.ReceiptStatusSuccessful})
	client.AddReceipt(common.HexToHash(testTxHash(2)), &types.Receipt{Status: types.ReceiptStatusFailed})
	svc := newTestTransactionService(t, db, client)

	for n := 1; n <= 2; n++ {
		_, _, err := svc.Create(registrationInput(testTxHash(n)))
		require.NoError(t, err)
	}

	confirmed, err := svc.SyncFromChain(context.Background(), testTxHash(1))
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusConfirmed, confirmed.Status)

	failed, err := svc.SyncFromChain(context.Background(), testTxHash(2))
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, failed.Status)
}

func TestSyncFromChainNoReceipt(t *testing.T) {
	db := newTestDB(t)
	svc := newTestTransactionService(t, db, nil)

	_, _, err := svc.Create(registrationInput(testTxHash(1)))
	require.NoError(t, err)

	_, err = svc.SyncFromChain(context.Background(), testTxHash(1))
	require.ErrorIs(t, err, ErrNotFound)
}
