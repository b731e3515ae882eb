package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pocketmall/shopdata/internal/core/domain/account"
)

type updateBalanceRequest struct {
	Delta int64 `json:"delta"`
}

func (s *Server) getProfile(c echo.Context) error {
	return c.JSON(http.StatusOK, s.accountSvc.GetProfile(c.Request().Context()))
}

func (s *Server) getAccountMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.accountSvc.GetMetrics(c.Request().Context()))
}

func (s *Server) getOrderCounts(c echo.Context) error {
	return c.JSON(http.StatusOK, s.accountSvc.GetOrderCounts(c.Request().Context()))
}

func (s *Server) updateBalance(c echo.Context) error {
	var req updateBalanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := s.accountSvc.UpdateBalance(c.Request().Context(), req.Delta)
	if err != nil {
		if rej, ok := account.AsRejection(err); ok {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{
				"reason":  string(rej.Reason),
				"message": rej.Message,
			})
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}
