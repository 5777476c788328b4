package api

import (
	"clouddrop/file-api/model"
	"clouddrop/file-api/storage"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// parseUploadID rejects malformed ids before they reach the ledger
func parseUploadID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}

	return uint(id), nil
}

// UploadServe streams the content of an upload back to its owner.
// Unknown ids and ids owned by someone else both come back as 404 so
// existence of other users' files never leaks.
func (a *API) UploadServe(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userEmail := c.MustGet("userEmail").(string)

	id, err := parseUploadID(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid file ID",
			"requestID": requestID,
		})
		return
	}

	var up model.Upload

	err = a.DB.
		Where("id = ? AND owner_email = ?", id, userEmail).
		First(&up).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "File not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to look up upload", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	rc, size, err := a.Store.Open(c.Request.Context(), up.StoragePath)
	if err != nil {
		// A record pointing at a missing blob means a delete was
		// interrupted after the blob went away. Report it like any
		// other missing file
		if errors.Is(err, storage.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "File not found",
				"requestID": requestID,
			})

			zap.L().Warn("Upload record points at a missing blob",
				zap.Uint("id", up.ID),
				zap.String("path", up.StoragePath))
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to open blob", zap.Error(err), zap.String("requestID", requestID))
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(up.StoredName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, size, contentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", up.OriginalName),
	})
}
