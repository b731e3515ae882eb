package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pocketmall/shopdata/internal/core/ports"
)

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type selectManyRequest struct {
	ProductIDs []string `json:"product_ids"`
}

func (s *Server) getCart(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"items":          s.cartSvc.Items(),
		"selections":     s.cartSvc.Selections(),
		"total_quantity": s.cartSvc.TotalQuantity(),
	})
}

func (s *Server) addItem(c echo.Context) error {
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ProductID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id is required")
	}
	res, err := s.cartSvc.AddItem(c.Request().Context(), req.ProductID, req.Quantity)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) setQuantity(c echo.Context) error {
	var req setQuantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.cartSvc.SetQuantity(c.Request().Context(), c.Param("product_id"), req.Quantity)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) removeItem(c echo.Context) error {
	res, err := s.cartSvc.RemoveItem(c.Request().Context(), c.Param("product_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) toggleSelection(c echo.Context) error {
	res, err := s.cartSvc.ToggleSelection(c.Request().Context(), c.Param("product_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) selectMany(c echo.Context) error {
	var req selectManyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.cartSvc.SelectMany(c.Request().Context(), req.ProductIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) selectAll(c echo.Context) error {
	res, err := s.cartSvc.SelectAll(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) clearSelections(c echo.Context) error {
	res, err := s.cartSvc.ClearSelections(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) clearCart(c echo.Context) error {
	res, err := s.cartSvc.Clear(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

// syncCart persists the cart immediately, bypassing the debounce window.
// Storage failures are surfaced: the caller explicitly asked for a persist.
func (s *Server) syncCart(c echo.Context) error {
	meta, err := s.syncSvc.SyncToStorage(c.Request().Context())
	if err != nil {
		var storageErr *ports.StorageError
		if errors.As(err, &storageErr) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, storageErr.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, meta)
}

func (s *Server) restoreCart(c echo.Context) error {
	res, err := s.syncSvc.SyncFromStorage(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	s.cartSvc.Replace(res.Items, res.Selections)
	return c.JSON(http.StatusOK, res)
}

func (s *Server) triggerSweep(c echo.Context) error {
	s.maintenanceSvc.Sweep(c.Request().Context())
	return c.NoContent(http.StatusAccepted)
}
