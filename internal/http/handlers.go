package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rfidlab/smarttray/internal/catalog"
	"github.com/rfidlab/smarttray/internal/config"
	"github.com/rfidlab/smarttray/internal/export"
	"github.com/rfidlab/smarttray/internal/locator"
	"github.com/rfidlab/smarttray/internal/model"
	"github.com/rfidlab/smarttray/internal/obs"
	"github.com/rfidlab/smarttray/internal/tray"
)

// App bundles the handler dependencies.
type App struct {
	Cfg     config.Config
	Catalog *catalog.Store
	Tray    *tray.Aggregator
	Locator *locator.Locator
	started time.Time
}

// NewApp constructs the HTTP application.
func NewApp(cfg config.Config, cat *catalog.Store, agg *tray.Aggregator, loc *locator.Locator) *App {
	return &App{Cfg: cfg, Catalog: cat, Tray: agg, Locator: loc, started: time.Now()}
}

type scanRequest struct {
	Tag string `json:"tag" binding:"required"`
}

func (a *App) scanHandler(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err.Error())
		return
	}
	ln, err := a.Tray.Scan(req.Tag)
	if err != nil {
		writeError(c, err)
		return
	}
	obs.Logger.Infow("manual_scan", "tag", ln.Tag, "quantity", ln.Quantity, "request_id", RequestIDFromContext(c))
	c.JSON(http.StatusOK, ln)
}

type adjustRequest struct {
	Delta int `json:"delta" binding:"required"`
}

func (a *App) adjustHandler(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err.Error())
		return
	}
	tag := model.NormalizeTag(c.Param("tag"))
	ln, err := a.Tray.AdjustQuantity(tag, req.Delta)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"line": ln, "removed": ln.Quantity == 0})
}

func (a *App) removeHandler(c *gin.Context) {
	tag := model.NormalizeTag(c.Param("tag"))
	if err := a.Tray.Remove(tag); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *App) resetHandler(c *gin.Context) {
	a.Tray.Reset()
	obs.Logger.Infow("tray_reset", "request_id", RequestIDFromContext(c))
	c.Status(http.StatusNoContent)
}

type discountRequest struct {
	Percent *float64 `json:"percent" binding:"required"`
}

func (a *App) discountHandler(c *gin.Context) {
	var req discountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err.Error())
		return
	}
	if err := a.Tray.SetDiscount(*req.Percent); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *App) billHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.Tray.Snapshot())
}

func (a *App) exportCSVHandler(c *gin.Context) {
	data, err := export.CSV(a.Tray.Snapshot())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="bill.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

func (a *App) exportPDFHandler(c *gin.Context) {
	data, err := export.PDF(a.Tray.Snapshot())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="bill.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

func (a *App) listCatalogHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.Catalog.All())
}

type catalogRequest struct {
	Name  string   `json:"name" binding:"required"`
	Price *float64 `json:"price" binding:"required"`
}

func (a *App) putCatalogHandler(c *gin.Context) {
	var req catalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err.Error())
		return
	}
	if *req.Price < 0 {
		writeBadRequest(c, "price must be >= 0")
		return
	}
	tag := model.NormalizeTag(c.Param("tag"))
	if tag == "" {
		writeBadRequest(c, "empty tag")
		return
	}
	p := model.Product{Name: req.Name, Price: decimal.NewFromFloat(*req.Price)}
	if err := a.Catalog.Set(tag, p); err != nil {
		writeError(c, err)
		return
	}
	obs.Logger.Infow("catalog_updated", "tag", tag, "request_id", RequestIDFromContext(c))
	c.Status(http.StatusNoContent)
}

func (a *App) deleteCatalogHandler(c *gin.Context) {
	tag := model.NormalizeTag(c.Param("tag"))
	ok, err := a.Catalog.Delete(tag)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown_tag"})
		return
	}
	c.Status(http.StatusNoContent)
}

type locateRequest struct {
	SKU  string `json:"sku" binding:"required"`
	Size string `json:"size" binding:"required"`
}

func (a *App) locateHandler(c *gin.Context) {
	var req locateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err.Error())
		return
	}
	rack, err := a.Locator.Locate(req.SKU, req.Size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rack": rack})
}

func (a *App) racksHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.Tray.Snapshot().Indicators)
}

func (a *App) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *App) metricsHandler(c *gin.Context) {
	accepted, rejected, traySize := a.Tray.Metrics()
	c.JSON(http.StatusOK, gin.H{
		"scans_accepted": accepted,
		"scans_rejected": rejected,
		"tray_size":      traySize,
		"catalog_size":   a.Catalog.Len(),
		"discount":       a.Tray.Discount(),
		"uptime_sec":     time.Since(a.started).Seconds(),
	})
}
