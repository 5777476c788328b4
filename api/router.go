// Package api contains all endpoints available
package api

import (
	"clouddrop/file-api/db"
	"clouddrop/file-api/middleware"
	"clouddrop/file-api/pkg/security"
	"clouddrop/file-api/storage"
	"fmt"
	"time"

	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

type API struct {
	DB     *gorm.DB
	Router *gin.Engine
	Hasher *security.Hasher
	Store  storage.Store
}

func NewRouter() (*API, error) {
	a := &API{
		Hasher: security.New(),
	}

	db, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = db

	store, err := storage.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob storage, %w", err)
	}
	a.Store = store

	makeLogger()
	a.setupRouter()

	return a, nil
}

// setupRouter builds the gin engine and the route table. Split out from
// NewRouter so tests can wire an API with their own DB and store.
func (a *API) setupRouter() {
	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.IdentityHeader},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userEmail"); v != "" {
					fields = append(fields, zap.String("userEmail", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	a.Router.MaxMultipartMemory = 8 << 20

	identity := middleware.NewIdentityMiddleware(a.DB)
	maxUploadSize := viper.GetInt64("upload.max_size")

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// POST /api/register 		-> Registers a new user
		main.POST("/register", middleware.BodySizeLimiter(1<<20), a.UserRegister)

		// POST /api/login 		-> Verifies credentials for a user
		main.POST("/login", middleware.BodySizeLimiter(1<<20), a.UserLogin)
	}

	uploads := main.Group("/uploads", identity)
	{
		// GET /api/uploads 		-> Lists the requester's uploads, newest first
		uploads.GET("", a.UploadList)

		// GET /api/uploads/file/:id 	-> Streams an uploaded file's content
		uploads.GET("/file/:id", a.UploadServe)

		// DELETE /api/uploads/:id 	-> Deletes an upload owned by the requester
		uploads.DELETE("/:id", a.UploadDelete)
	}

	users := main.Group("/users", identity)
	{
		// GET /api/users/stats 	-> Returns the storage stats of a user
		users.GET("/stats", a.UserStats)
	}

	// POST /upload 			-> Uploads a new file and records it in the ledger
	router.POST("/upload", identity, middleware.BodySizeLimiter(maxUploadSize), a.UploadCreate)
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	if lvl, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
