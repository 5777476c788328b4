package middleware

import (
	"clouddrop/file-api/model"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IdentityHeader carries the email a request claims to act as
const IdentityHeader = "X-User-Email"

// NewIdentityMiddleware resolves the claimed identity header against the
// users table and sets userEmail for downstream ownership checks.
//
// The claim is trusted once the email is known to exist. Anyone who
// knows a registered email can act as that user, which is the contract
// the frontend was built against. Replacing this with signed session
// tokens is the single biggest security fix this service could get.
func NewIdentityMiddleware(d *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		if d == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":     "Database not ready",
				"requestID": requestID,
			})
			return
		}

		email := c.GetHeader(IdentityHeader)
		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Missing user identity",
				"requestID": requestID,
			})
			return
		}

		var user model.User

		err := d.Where("email = ?", email).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":     "User not found",
					"requestID": requestID,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to resolve user identity", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.Set("userEmail", user.Email)
		c.Next()
	}
}
