package api

import (
	"clouddrop/file-api/model"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) UserStats(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userEmail := c.MustGet("userEmail").(string)

	var stats model.Stats

	err := a.DB.
		Where("user_email = ?", userEmail).
		Find(&stats).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load user stats", zap.String("userEmail", userEmail), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, stats)
}
