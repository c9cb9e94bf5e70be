package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/service"
)

// MaxUploadBytes caps the size of an uploaded photo.
const MaxUploadBytes = 20 << 20

// PhotoHandler handles photo intake and listing.
type PhotoHandler struct {
	photoService *service.PhotoService
}

// NewPhotoHandler creates a new photo handler.
// Parameters:
//   - photoService: photo service instance.
//
// Returns:
//   - *PhotoHandler: initialized handler.
func NewPhotoHandler(photoService *service.PhotoService) *PhotoHandler {
	return &PhotoHandler{photoService: photoService}
}

// CreatePhotoRequest registers a photo that is already hosted.
type CreatePhotoRequest struct {
	FileURL      string `json:"fileUrl" binding:"required"`
	FileName     string `json:"fileName"`
	MimeType     string `json:"mimeType"`
	ActivityName string `json:"activityName"`
	ActivityDate string `json:"activityDate"`
	Location     string `json:"location"`
	GroupName    string `json:"groupName"`
	Owner        string `json:"owner"`
}

// ListPhotos handles GET /api/v1/photos.
func (h *PhotoHandler) ListPhotos(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := h.photoService.List(c.Request.Context(), domain.PhotoFilter{
		ActivityName: c.Query("activity"),
		GroupName:    c.Query("group"),
		Status:       domain.EnrichmentStatus(c.Query("status")),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list photos: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetPhoto handles GET /api/v1/photos/:id.
func (h *PhotoHandler) GetPhoto(c *gin.Context) {
	photo, err := h.photoService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrPhotoNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Photo not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get photo: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": photo})
}

// CreatePhoto handles POST /api/v1/photos. A multipart body uploads a file;
// a JSON body registers an already hosted image.
func (h *PhotoHandler) CreatePhoto(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		h.uploadPhoto(c)
		return
	}

	var req CreatePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	photo, err := h.photoService.Create(c.Request.Context(), &domain.Photo{
		FileURL:      req.FileURL,
		FileName:     req.FileName,
		MimeType:     req.MimeType,
		ActivityName: req.ActivityName,
		ActivityDate: req.ActivityDate,
		Location:     req.Location,
		GroupName:    req.GroupName,
		Owner:        req.Owner,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoImageURL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fileUrl is required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create photo: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": photo})
}

func (h *PhotoHandler) uploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil || fh.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file: " + err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file: " + err.Error()})
		return
	}

	photo, err := h.photoService.Upload(c.Request.Context(), service.UploadInput{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
		PhotoMetadata: service.PhotoMetadata{
			ActivityName: c.PostForm("activityName"),
			ActivityDate: c.PostForm("activityDate"),
			Location:     c.PostForm("location"),
			GroupName:    c.PostForm("groupName"),
			Owner:        c.PostForm("owner"),
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileRequired), errors.Is(err, service.ErrInvalidImage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload photo: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": photo})
}
