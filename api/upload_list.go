package api

import (
	"clouddrop/file-api/model"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type uploadEntry struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"originalName"`
	URL          string `json:"url"`
}

func (a *API) UploadList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userEmail := c.MustGet("userEmail").(string)

	var entries []model.Upload

	err := a.DB.
		Where("owner_email = ?", userEmail).
		Order("created_at desc, id desc").
		Find(&entries).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list uploads", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	payload := make([]uploadEntry, 0, len(entries))
	for _, e := range entries {
		payload = append(payload, uploadEntry{
			ID:           e.ID,
			Name:         e.StoredName,
			OriginalName: e.OriginalName,
			URL:          uploadURL(e.ID),
		})
	}

	c.JSON(http.StatusOK, payload)
}
