package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"filmdex/internal/promotion"
	"filmdex/internal/retitle"
	"filmdex/pkg/utils"
)

// AdminHandler exposes the maintenance operations: batch title repair,
// duplicate-group reconciliation, and explicit primary re-sweeps.
type AdminHandler struct {
	Repo     *Repo
	Promoter *promotion.Controller
	Retitler *retitle.Runner
	Cfg      utils.CatalogConfig
}

func NewAdminHandler(repo *Repo, promoter *promotion.Controller, retitler *retitle.Runner, cfg utils.CatalogConfig) *AdminHandler {
	return &AdminHandler{Repo: repo, Promoter: promoter, Retitler: retitler, Cfg: cfg}
}

func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/admin/retitle", h.retitle)
	rg.POST("/admin/reconcile", h.reconcile)
	rg.POST("/admin/resweep/:group_id", h.resweep)
}

func (h *AdminHandler) retitle(c *gin.Context) {
	report, err := h.Retitler.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "retitle failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *AdminHandler) reconcile(c *gin.Context) {
	merges, err := h.Repo.ReconcileDuplicates(c.Request.Context(), h.Cfg.YearTolerance)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconcile failed"})
		return
	}

	// merged groups need their primary re-evaluated against the adopted copies
	for _, m := range merges {
		if _, err := h.Promoter.Resweep(c.Request.Context(), m.SurvivorID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "resweep after merge failed"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"merged": len(merges),
		"pairs":  merges,
	})
}

func (h *AdminHandler) resweep(c *gin.Context) {
	groupID := c.Param("group_id")

	g, err := h.Repo.GroupByID(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	primaryID, err := h.Promoter.Resweep(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_id": groupID, "primary_id": primaryID})
}
