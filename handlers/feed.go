package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-mlapi/db"
	"go-mlapi/types"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type FeedRunner interface {
	Run(ctx context.Context, uri string, limit int) (types.RunReport, error)
}

type PostReader interface {
	GetAnalysis(ctx context.Context, id string) (types.Analysis, error)
	ListRecent(ctx context.Context, limit int) ([]types.Analysis, error)
}

type runFeedRequest struct {
	URI   string `json:"uri"`
	Limit int    `json:"limit"`
}

// RunFeed processes one page of a feed now. Without a uri in the body the first
// configured feed is used.
func RunFeed(c *gin.Context, runner FeedRunner, defaultURIs []string, defaultLimit int) {
	if runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feed processing is not configured"})
		return
	}

	var request runFeedRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if request.URI == "" {
		if len(defaultURIs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no feed uri given and none configured"})
			return
		}
		request.URI = defaultURIs[0]
	}
	if request.Limit <= 0 {
		request.Limit = defaultLimit
	}
	if request.Limit > 100 {
		request.Limit = 100
	}

	report, err := runner.Run(c.Request.Context(), request.URI, request.Limit)
	if err != nil {
		log.Printf("Error running feed %s: %v", request.URI, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetPost returns one stored analysis by id.
func GetPost(c *gin.Context, posts PostReader) {
	if posts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage is not configured"})
		return
	}

	a, err := posts.GetAnalysis(c.Request.Context(), c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("Error getting post %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, a)
}

// ListPosts returns the most recent analyses, newest first.
func ListPosts(c *gin.Context, posts PostReader) {
	if posts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage is not configured"})
		return
	}

	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	list, err := posts.ListRecent(c.Request.Context(), limit)
	if err != nil {
		log.Printf("Error listing posts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if list == nil {
		list = []types.Analysis{}
	}
	c.JSON(http.StatusOK, gin.H{"posts": list})
}
