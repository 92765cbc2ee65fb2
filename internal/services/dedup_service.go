// internal/services/dedup_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"

	"github.com/corona10/goimagehash"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/artdrm/artdrm-backend/internal/config"
	"github.com/artdrm/artdrm-backend/internal/models"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

// DedupResult is the funnel's verdict for one upload.
type DedupResult struct {
	Status     models.UploadStatus `json:"status"`
	ImageID    uuid.UUID           `json:"image_id"`
	Distance   *int                `json:"distance,omitempty"`
	Similarity *float64            `json:"similarity,omitempty"`
	Provider   string              `json:"classifier_provider,omitempty"`
	Label      string              `json:"classifier_label,omitempty"`
}

// Duplicate reports whether the upload was turned away.
func (r *DedupResult) Duplicate() bool {
	return r.Status != models.UploadStatusCreated
}

// DedupService runs the sequential duplicate funnel: exact hash, then
// perceptual hash, then embedding similarity, then the AI classifier.
// Each stage short-circuits; later stages never run once one matches.
type DedupService struct {
	db          *gorm.DB
	storage     *StorageService
	extractor   EmbeddingExtractor
	classifiers *ClassifierChain
	cfg         config.DedupConfig
}

func NewDedupService(db *gorm.DB, storage *StorageService, extractor EmbeddingExtractor, classifiers *ClassifierChain, cfg config.DedupConfig) *DedupService {
	return &DedupService{
		db:          db,
		storage:     storage,
		extractor:   extractor,
		classifiers: classifiers,
		cfg:         cfg,
	}
}

// CheckAndStore pushes an upload through the funnel. Accepted uploads are
// archived and their fingerprints persisted; rejected ones leave no rows.
func (s *DedupService) CheckAndStore(ctx context.Context, filename, contentType string, data []byte) (*DedupResult, error) {
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, s.cfg.MaxUploadBytes)
	}
	if !IsSupportedImage(data) {
		return nil, fmt.Errorf("%w: unsupported image format", ErrValidation)
	}

	// Stage 1: exact content hash.
	hash := utils.HashBytes(data)

	var existing models.Image
	err := s.db.Where("hash = ?", hash).First(&existing).Error
	if err == nil {
		return &DedupResult{Status: models.UploadStatusDuplicateExact, ImageID: existing.ID}, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("hash lookup: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable image: %v", ErrValidation, err)
	}

	// Stage 2: perceptual hash against every stored fingerprint.
	// Linear scan; fine at current volumes, known to need an index later.
	phash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("perceptual hash: %w", err)
	}

	match, distance, err := s.scanPerceptual(phash)
	if err != nil {
		return nil, err
	}
	if match != nil {
		d := distance
		return &DedupResult{
			Status:   models.UploadStatusDuplicatePerceptual,
			ImageID:  match.ID,
			Distance: &d,
		}, nil
	}

	// Stage 3: embedding cosine similarity.
	embedding, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("embedding extraction: %w", err)
	}

	simMatch, similarity, err := s.scanEmbeddings(embedding)
	if err != nil {
		return nil, err
	}
	if simMatch != nil {
		sim := similarity
		return &DedupResult{
			Status:     models.UploadStatusDuplicateAI,
			ImageID:    simMatch.ID,
			Similarity: &sim,
		}, nil
	}

	// Stage 4: AI-vs-real classification. Provider failures never block
	// the upload; with no verdict the image passes through.
	result := &DedupResult{Status: models.UploadStatusCreated}
	if !s.classifiers.Empty() {
		label, provider, err := s.classifiers.Classify(ctx, data)
		if err != nil {
			logrus.WithError(err).Warn("All classifier providers failed, accepting upload unclassified")
		} else {
			result.Label = label
			result.Provider = provider
			if label == LabelAI {
				result.Status = models.UploadStatusRejectedAI
				return result, nil
			}
		}
	}

	archive, err := s.storage.ArchiveBytes(data, filename, contentType)
	if err != nil {
		return nil, fmt.Errorf("archive upload: %w", err)
	}

	record := &models.Image{
		Filename:   filename,
		Hash:       hash,
		PHash:      fmt.Sprintf("%016x", phash.GetHash()),
		Embedding:  models.Float64Slice(embedding),
		StorageKey: archive.Key,
		Size:       int64(len(data)),
		MimeType:   contentType,
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("persist fingerprint: %w", err)
	}

	result.ImageID = record.ID
	return result, nil
}

// GetImage fetches one stored fingerprint.
func (s *DedupService) GetImage(id uuid.UUID) (*models.Image, error) {
	var img models.Image
	if err := s.db.First(&img, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: image %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &img, nil
}

// ListImages returns stored fingerprints with pagination.
func (s *DedupService) ListImages(params utils.PaginationParams) (*utils.PaginationResult, error) {
	var images []models.Image
	var total int64

	query := s.db.Model(&models.Image{})
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	query = utils.ApplySort(query, params, []string{"created_at", "size", "filename"})
	if err := utils.ApplyPagination(query, params).Find(&images).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(images, total, params)
	return &result, nil
}

func (s *DedupService) scanPerceptual(candidate *goimagehash.ImageHash) (*models.Image, int, error) {
	var stored []models.Image
	if err := s.db.Select("id", "p_hash").Where("p_hash <> ''").Find(&stored).Error; err != nil {
		return nil, 0, fmt.Errorf("phash scan: %w", err)
	}

	for i := range stored {
		bits, err := strconv.ParseUint(stored[i].PHash, 16, 64)
		if err != nil {
			continue
		}

		distance, err := candidate.Distance(goimagehash.NewImageHash(bits, goimagehash.PHash))
		if err != nil {
			continue
		}
		if distance <= s.cfg.PerceptualThreshold {
			return &stored[i], distance, nil
		}
	}

	return nil, 0, nil
}

func (s *DedupService) scanEmbeddings(candidate []float64) (*models.Image, float64, error) {
	var stored []models.Image
	if err := s.db.Select("id", "embedding").Where("embedding IS NOT NULL").Find(&stored).Error; err != nil {
		return nil, 0, fmt.Errorf("embedding scan: %w", err)
	}

	for i := range stored {
		sim := CosineSimilarity(candidate, stored[i].Embedding)
		if sim >= s.cfg.EmbeddingThreshold {
			return &stored[i], sim, nil
		}
	}

	return nil, 0, nil
}
