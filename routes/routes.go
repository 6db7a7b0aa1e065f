package routes

import (
	"github.com/gin-gonic/gin"

	"go-mlapi/handlers"
)

// Deps are the services the routes dispatch to. Google, Feed and Posts may be nil
// when the matching credentials are not configured.
type Deps struct {
	Analyzer  handlers.Analyzer
	Google    handlers.GoogleAnalyzer
	Feed      handlers.FeedRunner
	Posts     handlers.PostReader
	FeedURIs  []string
	FeedLimit int
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Hello, welcome to go-mlapi!",
		})
	})

	api := r.Group("/api/mlapi")
	{
		api.GET("/operations", handlers.ListOperations)
		api.POST("/analyze/:operation", func(c *gin.Context) {
			handlers.Analyze(c, d.Analyzer)
		})
		api.POST("/google/:operation", func(c *gin.Context) {
			handlers.AnalyzeGoogle(c, d.Google)
		})
		api.POST("/feed/run", func(c *gin.Context) {
			handlers.RunFeed(c, d.Feed, d.FeedURIs, d.FeedLimit)
		})
		api.GET("/feed/posts", func(c *gin.Context) {
			handlers.ListPosts(c, d.Posts)
		})
		api.GET("/feed/posts/:id", func(c *gin.Context) {
			handlers.GetPost(c, d.Posts)
		})
	}

	return r
}
