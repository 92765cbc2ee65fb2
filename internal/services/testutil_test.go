// internal/services/testutil_test.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/artdrm/artdrm-backend/internal/config"
	"github.com/artdrm/artdrm-backend/internal/models"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

// newTestDB opens a uniquely named in-memory database so tests never
// share state, and migrates the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Artwork{}, &models.Image{}, &models.License{}, &models.Transaction{})
	require.NoError(t, err)

	return db
}

func newLocalStorage(t *testing.T) *StorageService {
	t.Helper()

	svc, err := NewStorageService(&config.Config{})
	require.NoError(t, err)
	return svc
}

func testParams() utils.PaginationParams {
	return utils.PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Order: "desc"}
}

// gradientPNG renders a horizontal luminance ramp. A non-zero shift
// brightens every pixel, which changes the bytes but not the perceptual
// hash.
func gradientPNG(t *testing.T, shift uint8) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x*3) + shift})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// invertedGradientPNG is the ramp mirrored in luminance, perceptually
// far from gradientPNG.
func invertedGradientPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: 255 - uint8(x*3)})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// stubExtractor returns a fixed vector and counts invocations so tests
// can prove the embedding stage was skipped.
type stubExtractor struct {
	vec   []float64
	err   error
	calls int
}

func (s *stubExtractor) Extract(context.Context, []byte) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]float64, len(s.vec))
	copy(out, s.vec)
	return out, nil
}

type stubClassifier struct {
	name  string
	label string
	err   error
	calls int
}

func (s *stubClassifier) Name() string { return s.name }

func (s *stubClassifier) Classify(context.Context, []byte) (string, error) {
	s.calls++
	return s.label, s.err
}

type stubPinner struct {
	name  string
	uri   string
	err   error
	calls int
}

func (s *stubPinner) Name() string { return s.name }

func (s *stubPinner) PinBytes(context.Context, []byte, string) (string, error) {
	s.calls++
	return s.uri, s.err
}
