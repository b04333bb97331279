/*
Package monitoring provides Prometheus metrics for the plugin runtime.

Metrics live on a dedicated registry so several instances can coexist in one
process (tests build one per server). A nil *Metrics records nothing.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "install")
	err := manager.Install(ctx, id)
	timer.Stop(err)
*/
package monitoring
