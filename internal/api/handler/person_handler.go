package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/islab/coordinates-registry/internal/core/ports"
)

// PersonHandler handles HTTP requests for persons placed at coordinates.
type PersonHandler struct {
	service ports.PersonService
}

func NewPersonHandler(service ports.PersonService) *PersonHandler {
	return &PersonHandler{service: service}
}

// Create handles POST /v1/persons.
//
// @Summary      Place a person at existing coordinates
// @Tags         persons
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createPersonRequest  true  "Person"
// @Success      201   {object}  personResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/persons [post]
func (h *PersonHandler) Create(c echo.Context) error {
	var req createPersonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	view, err := h.service.Create(c.Request().Context(), ports.CreatePersonInput{
		Name:          req.Name,
		CoordinatesID: req.CoordinatesID,
	})
	recordMutation("create_person", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toPersonResponse(*view))
}

// List handles GET /v1/persons?coordinatesId=.
//
// @Summary      List persons located at coordinates
// @Tags         persons
// @Produce      json
// @Security     BearerAuth
// @Param        coordinatesId  query     int  true  "Coordinates id"
// @Success      200            {array}   personResponse
// @Failure      400            {object}  errorResponse
// @Failure      401            {object}  errorResponse
// @Failure      404            {object}  errorResponse
// @Router       /v1/persons [get]
func (h *PersonHandler) List(c echo.Context) error {
	var coordinatesID int64
	if err := echo.QueryParamsBinder(c).
		MustInt64("coordinatesId", &coordinatesID).
		BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "coordinatesId query parameter is required")
	}

	views, err := h.service.ListByCoordinates(c.Request().Context(), coordinatesID)
	if err != nil {
		return err
	}

	resp := make([]personResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toPersonResponse(v))
	}
	return c.JSON(http.StatusOK, resp)
}
