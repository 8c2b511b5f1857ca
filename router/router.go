package router

import (
	"LocalVault/config"
	"LocalVault/internal/handler"
	"LocalVault/internal/metrics"
	"LocalVault/utils"

	"github.com/gin-gonic/gin"
)

// InitRouter builds API routes.
func InitRouter(files *handler.FileHandler) *gin.Engine {
	r := gin.Default()
	r.Use(utils.CORSMiddleware())
	r.Use(metrics.Middleware())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/blob/:token", files.ServeBlob)

	api := r.Group("/api")
	{
		file := api.Group("/files")
		{
			file.GET("", files.ListFiles)
			file.POST("", utils.RateLimitMiddleware(config.AppConfig.UploadRate, config.AppConfig.UploadBurst), files.UploadFile)
			file.POST("/clear", files.ClearStorage)
			file.GET("/:id/download", files.DownloadFile)
			file.GET("/:id/preview", files.PreviewFile)
			file.DELETE("/:id", files.DeleteFile)
		}

		api.POST("/preview/release", files.ReleasePreview)
		api.GET("/usage", files.GetUsage)
		api.GET("/notifications", files.Notifications)
		api.POST("/session/reload", files.ReloadSession)
	}
	return r
}
