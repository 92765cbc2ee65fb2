// internal/handlers/image.go
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/artdrm/artdrm-backend/internal/services"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

type ImageHandler struct {
	dedupService *services.DedupService
}

func NewImageHandler(dedupService *services.DedupService) *ImageHandler {
	return &ImageHandler{
		dedupService: dedupService,
	}
}

// POST /images/upload
// Runs the upload through the dedup funnel without registering an
// artwork. Duplicates and AI rejections come back as 409.
func (h *ImageHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "Missing file field", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read upload", nil)
		return
	}

	result, err := h.dedupService.CheckAndStore(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if result.Duplicate() {
		c.JSON(http.StatusConflict, utils.APIResponse{Success: false, Data: result, Error: &utils.APIError{
			Code:   "DUPLICATE",
			Detail: "Upload rejected by duplicate detection: " + string(result.Status),
		}})
		return
	}

	utils.CreatedResponse(c, result)
}

// GET /images/:id
func (h *ImageHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid image ID", nil)
		return
	}

	image, err := h.dedupService.GetImage(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, image)
}

// GET /images
func (h *ImageHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	result, err := h.dedupService.ListImages(params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, *result)
}
