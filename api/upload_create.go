package api

import (
	"clouddrop/file-api/model"
	"clouddrop/file-api/storage"
	"clouddrop/file-api/validators"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func uploadURL(id uint) string {
	return fmt.Sprintf("/api/uploads/file/%d", id)
}

func (a *API) UploadCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userEmail := c.MustGet("userEmail").(string)

	if !strings.HasPrefix(c.Request.Header.Get("Content-Type"), "multipart/form-data") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request",
			"requestID": requestID,
		})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid multipart form",
			"requestID": requestID,
		})

		zap.L().Debug("Failed to parse multipart form", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file uploaded",
			"requestID": requestID,
		})
		return
	}

	fh := files[0]

	code, f, err := validators.FileValidator(fh)
	if err != nil {
		if code == http.StatusInternalServerError {
			zap.L().Error("Failed to validate file", zap.Error(err), zap.String("requestID", requestID))

			// That's to set the error into a general one for the users
			err = errors.New("internal server error")
		}

		c.AbortWithStatusJSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}
	defer f.Close()

	res, err := a.Store.Write(c.Request.Context(), storage.NamespaceFor(userEmail), fh.Filename, f)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to write blob", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	rec := model.Upload{
		OwnerEmail:   userEmail,
		OriginalName: fh.Filename,
		StoredName:   res.StoredName,
		StoragePath:  res.Path,
		Size:         res.Size,
		CreatedAt:    time.Now().UnixMilli(),
	}

	if err := a.DB.Create(&rec).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		// The blob write already succeeded so the content stays where
		// it is, now orphaned. Logged with its path so an operator can
		// sweep it up
		zap.L().Error("Failed to record upload, blob orphaned",
			zap.Error(err),
			zap.String("path", res.Path),
			zap.String("requestID", requestID))
		return
	}

	err = a.DB.
		Model(model.Stats{}).
		Where("user_email = ?", userEmail).
		Updates(map[string]any{
			"used_storage":   gorm.Expr("used_storage + ?", res.Size),
			"uploaded_files": gorm.Expr("uploaded_files + ?", 1),
		}).
		Error
	if err != nil {
		// Stats are a convenience counter, the upload itself is done
		zap.L().Error("Failed to increment user's used storage", zap.Error(err), zap.String("requestID", requestID))
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "File uploaded successfully",
		"filePath":     uploadURL(rec.ID),
		"storedName":   rec.StoredName,
		"originalName": rec.OriginalName,
		"url":          uploadURL(rec.ID),
	})
}
