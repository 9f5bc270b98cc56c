package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/islab/coordinates-registry/internal/api/metrics"
	"github.com/islab/coordinates-registry/internal/core/domain"
	"github.com/islab/coordinates-registry/internal/core/ports"
)

const defaultPageSize = 10

// CoordinatesHandler handles HTTP requests for coordinates operations.
type CoordinatesHandler struct {
	service ports.CoordinatesService
}

func NewCoordinatesHandler(service ports.CoordinatesService) *CoordinatesHandler {
	return &CoordinatesHandler{service: service}
}

// List handles GET /v1/coordinates.
//
// @Summary      List coordinates
// @Tags         coordinates
// @Produce      json
// @Security     BearerAuth
// @Param        from  query     int  false  "Offset of the first entry (default 0)"
// @Param        size  query     int  false  "Page size, 1..100 (default 10)"
// @Success      200   {array}   coordinatesResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/coordinates [get]
func (h *CoordinatesHandler) List(c echo.Context) error {
	q := listCoordinatesQuery{From: 0, Size: defaultPageSize}
	if err := echo.QueryParamsBinder(c).
		Int("from", &q.From).
		Int("size", &q.Size).
		BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	views, err := h.service.List(c.Request().Context(), ports.ListCoordinatesInput{
		Offset: q.From,
		Limit:  q.Size,
	})
	if err != nil {
		return err
	}

	resp := make([]coordinatesResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toCoordinatesResponse(v))
	}
	return c.JSON(http.StatusOK, resp)
}

// Create handles POST /v1/coordinates.
//
// @Summary      Create coordinates owned by the caller
// @Tags         coordinates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createCoordinatesRequest  true  "Coordinates"
// @Success      201   {object}  coordinatesResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/coordinates [post]
func (h *CoordinatesHandler) Create(c echo.Context) error {
	var req createCoordinatesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	view, err := h.service.Create(c.Request().Context(), ports.CreateCoordinatesInput{
		X:              *req.X,
		Y:              *req.Y,
		AdminCanModify: *req.AdminCanModify,
	})
	recordMutation("create", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toCoordinatesResponse(*view))
}

// Alter handles PUT /v1/coordinates/:id.
//
// @Summary      Replace x, y and optionally the admin consent flag
// @Tags         coordinates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                      true  "Coordinates id"
// @Param        body  body      alterCoordinatesRequest  true  "New values"
// @Success      200   {object}  coordinatesResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/coordinates/{id} [put]
func (h *CoordinatesHandler) Alter(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req alterCoordinatesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	view, err := h.service.Alter(c.Request().Context(), id, ports.AlterCoordinatesInput{
		X:              *req.X,
		Y:              *req.Y,
		AdminCanModify: req.AdminCanModify,
	})
	recordMutation("alter", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toCoordinatesResponse(*view))
}

// Delete handles DELETE /v1/coordinates/:id.
//
// @Summary      Delete coordinates and every person located at them
// @Tags         coordinates
// @Security     BearerAuth
// @Param        id  path  int  true  "Coordinates id"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/coordinates/{id} [delete]
func (h *CoordinatesHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	err = h.service.Delete(c.Request().Context(), id)
	recordMutation("delete", err)
	if err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid coordinates id")
	}
	return id, nil
}

func recordMutation(operation string, err error) {
	metrics.MutationsTotal.WithLabelValues(operation, mutationResult(err)).Inc()
}

func mutationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrCoordinatesNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrCoordinatesExist):
		return "conflict"
	case errors.Is(err, domain.ErrAuthenticationFailed):
		return "unauthenticated"
	default:
		return "error"
	}
}
