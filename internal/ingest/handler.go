package ingest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Pipeline *Pipeline
}

func NewHandler(p *Pipeline) *Handler {
	return &Handler{Pipeline: p}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ingest", h.ingest)
}

type ingestReq struct {
	VideoID     string `json:"video_id"`
	ChannelID   string `json:"channel_id"`
	Title       string `json:"title"`
	ExternalID  string `json:"external_id"`
	ReleaseYear int    `json:"release_year"`
	ViewCount   int64  `json:"view_count"`
	LikeCount   int64  `json:"like_count"`
	PublishedAt string `json:"published_at"` // RFC3339, optional
	Embeddable  bool   `json:"embeddable"`
}

func (h *Handler) ingest(c *gin.Context) {
	var req ingestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.VideoID == "" || req.ChannelID == "" || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video_id, channel_id and title are required"})
		return
	}

	v := Video{
		VideoID:     req.VideoID,
		ChannelID:   req.ChannelID,
		RawTitle:    req.Title,
		ExternalID:  req.ExternalID,
		ReleaseYear: req.ReleaseYear,
		ViewCount:   req.ViewCount,
		LikeCount:   req.LikeCount,
		Embeddable:  req.Embeddable,
	}
	if req.PublishedAt != "" {
		t, err := time.Parse(time.RFC3339, req.PublishedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "published_at must be RFC3339"})
			return
		}
		v.PublishedAt = &t
	}

	out, err := h.Pipeline.IngestOne(c.Request.Context(), v)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingest failed"})
		return
	}

	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	c.JSON(status, out)
}
