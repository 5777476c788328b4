package api

import (
	"clouddrop/file-api/model"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UploadDelete removes an upload's blob and its ledger record. The blob
// goes first so a crash in between leaves an orphaned record that a
// later fetch reports as missing, instead of an untracked blob nothing
// points at.
func (a *API) UploadDelete(c *gin.Context) {
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

	// Best effort. A blob that's already gone or a flaky disk must not
	// block the record from being removed
	if err := a.Store.Delete(c.Request.Context(), up.StoragePath); err != nil {
		zap.L().Error("Failed to delete blob",
			zap.Error(err),
			zap.String("path", up.StoragePath),
			zap.String("requestID", requestID))
	}

	if err := a.DB.Delete(&model.Upload{}, up.ID).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete upload record", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	err = a.DB.
		Model(model.Stats{}).
		Where("user_email = ?", userEmail).
		Updates(map[string]any{
			"used_storage":   gorm.Expr("used_storage - ?", up.Size),
			"uploaded_files": gorm.Expr("uploaded_files - ?", 1),
		}).
		Error
	if err != nil {
		zap.L().Error("Failed to decrement user's used storage", zap.Error(err), zap.String("requestID", requestID))
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "deleted",
	})
}
