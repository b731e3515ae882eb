package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")

	crt := api.Group("/cart")
	crt.GET("", s.getCart)
	crt.DELETE("", s.clearCart)
	crt.POST("/items", s.addItem)
	crt.PUT("/items/:product_id", s.setQuantity)
	crt.DELETE("/items/:product_id", s.removeItem)
	crt.POST("/items/:product_id/toggle", s.toggleSelection)
	crt.POST("/selections", s.selectMany)
	crt.POST("/selections/all", s.selectAll)
	crt.DELETE("/selections", s.clearSelections)
	crt.POST("/sync", s.syncCart)
	crt.POST("/restore", s.restoreCart)

	acc := api.Group("/account")
	acc.GET("/profile", s.getProfile)
	acc.GET("/metrics", s.getAccountMetrics)
	acc.GET("/orders", s.getOrderCounts)
	acc.POST("/balance", s.updateBalance)

	// Sweep doubles as the on-visibility-regain trigger: the UI shell posts
	// here when the app comes back to the foreground.
	api.POST("/maintenance/sweep", s.triggerSweep)
}
