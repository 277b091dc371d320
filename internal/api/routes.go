package api

import (
	"alihamza/deceptron/internal/service"
	"alihamza/deceptron/internal/upload"

	"github.com/gin-gonic/gin"
)

// SetupRoutes mounts every bridge operation. Public routes: signup and
// login. Everything else requires the JWT-bound identity.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	mediaService service.MediaService,
	uploads *upload.Manager,
) {
	authHandler := NewAuthHandler(authService)
	mediaHandler := NewMediaHandler(mediaService, uploads)

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/signup", authHandler.Signup)
		apiGroup.POST("/login", authHandler.Login)
	}

	authed := apiGroup.Group("")
	authed.Use(AuthMiddleware(jwtSecret))
	{
		authed.POST("/logout", authHandler.Logout)
		authed.GET("/me", authHandler.Me)

		authed.PUT("/profile", authHandler.UpdateProfile)
		authed.PUT("/avatar", authHandler.UpdateAvatar)
		authed.PUT("/password", authHandler.UpdatePassword)
		authed.PUT("/preferences", authHandler.SavePreferences)
		authed.GET("/preferences", authHandler.LoadPreferences)

		authed.GET("/uploads", mediaHandler.List)
		authed.POST("/uploads/initiate", mediaHandler.InitiateUpload)
		authed.POST("/uploads/chunk", mediaHandler.AppendChunk)
		authed.POST("/uploads/finalize", mediaHandler.FinalizeUpload)
		authed.DELETE("/uploads/:id", mediaHandler.DeleteRecord)
		authed.POST("/recordings", mediaHandler.SaveRecording)
	}
}
