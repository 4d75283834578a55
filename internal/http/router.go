package httpapi

import "github.com/gin-gonic/gin"

// NewRouter registers HTTP routes and returns the engine with middleware.
func NewRouter(app *App) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), WithRequestID(), WithLogging(), CORS())

	r.POST("/scan", app.scanHandler)
	r.POST("/tray/:tag/adjust", app.adjustHandler)
	r.DELETE("/tray/:tag", app.removeHandler)
	r.POST("/tray/reset", app.resetHandler)
	r.PUT("/discount", app.discountHandler)

	r.GET("/bill", app.billHandler)
	r.GET("/bill/export.csv", app.exportCSVHandler)
	r.GET("/bill/export.pdf", app.exportPDFHandler)

	r.GET("/catalog", app.listCatalogHandler)
	r.PUT("/catalog/:tag", app.putCatalogHandler)
	r.DELETE("/catalog/:tag", app.deleteCatalogHandler)

	r.POST("/locate", app.locateHandler)
	r.GET("/racks", app.racksHandler)

	r.GET("/healthz", app.healthHandler)
	r.GET("/debug/metrics", app.metricsHandler)
	return r
}
