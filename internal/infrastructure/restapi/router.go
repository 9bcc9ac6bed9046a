package restapi

import (
	"net/http"
	"net/http/pprof"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter wires the HTTP surface: one scan and one pooled route per
// configured protocol, the coin endpoint, health, metrics, and pprof.
// Protocol routes are registered statically from configuration so the
// route table itself documents what is served.
func SetupRouter(scanHandler *ScanHandler, coinHandler *CoinHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/protocols", scanHandler.ProtocolsHandlerFunc)

	for _, protocolID := range scanHandler.scans.Protocols() {
		router.GET("/"+protocolID+"/tbtc", scanHandler.ScanHandlerFunc(protocolID))
		router.GET("/"+protocolID+"/tbtc/pooled", scanHandler.PooledHandlerFunc(protocolID))
	}

	router.GET("/coin/tbtc", coinHandler.ReportHandlerFunc)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	debug := router.Group("/debug/pprof")
	{
		debug.GET("/", gin.WrapF(pprof.Index))
		debug.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		debug.GET("/profile", gin.WrapF(pprof.Profile))
		debug.GET("/symbol", gin.WrapF(pprof.Symbol))
		debug.GET("/trace", gin.WrapF(pprof.Trace))
		debug.GET("/heap", gin.WrapH(pprof.Handler("heap")))
		debug.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
		debug.GET("/block", gin.WrapH(pprof.Handler("block")))
	}

	return router
}
