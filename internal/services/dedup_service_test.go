// internal/services/dedup_service_test.go
package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/artdrm/artdrm-backend/internal/config"
	"github.com/artdrm/artdrm-backend/internal/models"
)

func defaultDedupConfig() config.DedupConfig {
	return config.DedupConfig{
		PerceptualThreshold: 5,
		EmbeddingThreshold:  0.9,
		MaxUploadBytes:      10 * 1024 * 1024,
	}
}

func newTestDedup(t *testing.T, db *gorm.DB, extractor EmbeddingExtractor, chain *ClassifierChain) *DedupService {
	t.Helper()
	if extractor == nil {
		extractor = &stubExtractor{vec: []float64{1, 0, 0}}
	}
	if chain == nil {
		chain = NewClassifierChainFrom()
	}
	return NewDedupService(db, newLocalStorage(t), extractor, chain, defaultDedupConfig())
}

func TestCheckAndStoreAcceptsNewImage(t *testing.T) {
	db := newTestDB(t)
	svc := newTestDedup(t, db, nil, nil)

	result, err := svc.CheckAndStore(context.Background(), "art.png", "image/png", gradientPNG(t, 0))

	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusCreated, result.Status)
	assert.False(t, result.Duplicate())

	stored, err := svc.GetImage(result.ImageID)
	require.NoError(t, err)
	assert.Equal(t, "art.png", stored.Filename)
	assert.Len(t, stored.PHash, 16)
	assert.NotEmpty(t, stored.Embedding)
	assert.NotEmpty(t, stored.StorageKey)
}

func TestCheckAndStoreExactDuplicate(t *testing.T) {
	db := newTestDB(t)
	extractor := &stubExtractor{vec: []float64{1, 0, 0}}
	svc := newTestDedup(t, db, extractor, nil)
	data := gradientPNG(t, 0)

	first, err := svc.CheckAndStore(context.Background(), "a.png", "image/png", data)
	require.NoError(t, err)

	second, err := svc.CheckAndStore(context.Background(), "b.png", "image/png", data)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusDuplicateExact, second.Status)
	assert.Equal(t, first.ImageID, second.ImageID)
	// Exact matches short-circuit before any feature extraction.
	assert.Equal(t, 1, extractor.calls)
}

func TestCheckAndStorePerceptualDuplicate(t *testing.T) {
	db := newTestDB(t)
	extractor := &stubExtractor{vec: []float64{1, 0, 0}}
	svc := newTestDedup(t, db, extractor, nil)

	first, err := svc.CheckAndStore(context.Background(), "a.png", "image/png", gradientPNG(t, 0))
	require.NoError(t, err)

	// Same pixels shifted one luma step: different bytes, same phash.
	second, err := svc.CheckAndStore(context.Background(), "b.png", "image/png", gradientPNG(t, 1))
	require.NoError(t, err)

	assert.Equal(t, models.UploadStatusDuplicatePerceptual, second.Status)
	assert.Equal(t, first.ImageID, second.ImageID)
	require.NotNil(t, second.Distance)
	assert.LessOrEqual(t, *second.Distance, 5)
	assert.Equal(t, 1, extractor.calls)
}

func TestCheckAndStoreEmbeddingDuplicate(t *testing.T) {
	db := newTestDB(t)
	// Both uploads map to the same vector, simulating near-identical
	// features on perceptually distinct images.
	extractor := &stubExtractor{vec: []float64{0.5, 0.5, 0.5}}
	svc := newTestDedup(t, db, extractor, nil)

	first, err := svc.CheckAndStore(context.Background(), "a.png", "image/png", gradientPNG(t, 0))
	require.NoError(t, err)

	second, err := svc.CheckAndStore(context.Background(), "b.png", "image/png", invertedGradientPNG(t))
	require.NoError(t, err)

	assert.Equal(t, models.UploadStatusDuplicateAI, second.Status)
	assert.Equal(t, first.ImageID, second.ImageID)
	require.NotNil(t, second.Similarity)
	assert.GreaterOrEqual(t, *second.Similarity, 0.9)
	assert.Equal(t, 2, extractor.calls)
}

func TestCheckAndStoreRejectsAIGenerated(t *testing.T) {
	db := newTestDB(t)
	classifier := &stubClassifier{name: "gemini", label: LabelAI}
	svc := newTestDedup(t, db, nil, NewClassifierChainFrom(classifier))

	result, err := svc.CheckAndStore(context.Background(), "a.png", "image/png", gradientPNG(t, 0))

	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusRejectedAI, result.Status)
	assert.Equal(t, LabelAI, result.Label)
	assert.Equal(t, "gemini", result.Provider)

	// Rejected uploads leave no fingerprint behind.
	var count int64
	require.NoError(t, db.Model(&models.Image{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCheckAndStoreRecordsClassifierVerdict(t *testing.T) {
	db := newTestDB(t)
	classifier := &stubClassifier{name: "openai", label: LabelReal}
	svc := newTestDedup(t, db, nil, NewClassifierChainFrom(classifier))

	result, err := svc.CheckAndStore(context.Background(), "a.png", "image/png", gradientPNG(t, 0))

	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusCreated, result.Status)
	assert.Equal(t, LabelReal, result.Label)
	assert.Equal(t, "openai", result.Provider)
}

func TestCheckAndStoreFailsOpenWhenClassifiersDown(t *testing.T) {
	db := newTestDB(t)
	classifier := &stubClassifier{name: "gemini", err: fmt.Errorf("quota exhausted")}
	svc := newTestDedup(t, db, nil, NewClassifierChainFrom(classifier))

	result, err := svc.CheckAndStore(context.Background(), "a.png", "image/png", gradientPNG(t, 0))

	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusCreated, result.Status)
	assert.Empty(t, result.Label)

	var count int64
	require.NoError(t, db.Model(&models.Image{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCheckAndStoreRejectsOversizedUpload(t *testing.T) {
	db := newTestDB(t)
	svc := NewDedupService(db, newLocalStorage(t), &stubExtractor{vec: []float64{1}},
		NewClassifierChainFrom(), config.DedupConfig{
			PerceptualThreshold: 5,
			EmbeddingThreshold:  0.9,
			MaxUploadBytes:      16,
		})

	_, err := svc.CheckAndStore(context.Background(), "a.png", "image/png", gradientPNG(t, 0))
	require.ErrorIs(t, err, ErrValidation)
}

func TestCheckAndStoreRejectsUnsupportedFormat(t *testing.T) {
	db := newTestDB(t)
	svc := newTestDedup(t, db, nil, nil)

	_, err := svc.CheckAndStore(context.Background(), "a.txt", "text/plain", []byte("not an image"))
	require.ErrorIs(t, err, ErrValidation)
}

// seqExtractor hands out a different vector per call so successive
// uploads do not collide on similarity.
type seqExtractor struct {
	vecs  [][]float64
	calls int
}

func (s *seqExtractor) Extract(context.Context, []byte) ([]float64, error) {
	vec := s.vecs[s.calls%len(s.vecs)]
	s.calls++
	out := make([]float64, len(vec))
	copy(out, vec)
	return out, nil
}

func TestListImages(t *testing.T) {
	db := newTestDB(t)
	extractor := &seqExtractor{vecs: [][]float64{{1, 0, 0}, {0, 1, 0}}}
	svc := newTestDedup(t, db, extractor, nil)

	_, err := svc.CheckAndStore(context.Background(), "a.png", "image/png", gradientPNG(t, 0))
	require.NoError(t, err)
	_, err = svc.CheckAndStore(context.Background(), "b.png", "image/png", invertedGradientPNG(t))
	require.NoError(t, err)

	result, err := svc.ListImages(testParams())
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)
}
