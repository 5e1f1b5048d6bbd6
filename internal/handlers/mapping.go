package handlers

import (
	"context"

	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/labstack/echo/v4"
)

type MappingFieldRepo interface {
	ListByType(ctx context.Context, mappingType string) ([]models.MappingFieldOverride, error)
	Set(ctx context.Context, mappingType, swField, plentyField string) (*models.MappingFieldOverride, error)
	Delete(ctx context.Context, mappingType, swField string) error
}

// MappingFieldHandler manages the operator field overrides. They take
// effect on the next batch.
type MappingFieldHandler struct {
	repo MappingFieldRepo
}

func NewMappingFieldHandler(repo MappingFieldRepo) *MappingFieldHandler {
	return &MappingFieldHandler{repo: repo}
}

type SetMappingFieldRequest struct {
	PlentyField string `json:"plenty_field" validate:"required"`
}

func (h *MappingFieldHandler) RegisterRoutes(g *echo.Group) {
	fields := g.Group("/mapping-fields")
	fields.GET("", h.List)
	fields.PUT("/:sw_field", h.Set)
	fields.DELETE("/:sw_field", h.Delete)
}

// List handles GET /mapping-fields?type=...
func (h *MappingFieldHandler) List(c echo.Context) error {
	overrides, err := h.repo.ListByType(c.Request().Context(), mappingType(c))
	if err != nil {
		return err
	}
	if overrides == nil {
		overrides = []models.MappingFieldOverride{}
	}
	return SuccessResponse(c, overrides)
}

// Set handles PUT /mapping-fields/:sw_field
func (h *MappingFieldHandler) Set(c echo.Context) error {
	var req SetMappingFieldRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	override, err := h.repo.Set(c.Request().Context(), mappingType(c), c.Param("sw_field"), req.PlentyField)
	if err != nil {
		return err
	}
	return SuccessResponse(c, override)
}

// Delete handles DELETE /mapping-fields/:sw_field
func (h *MappingFieldHandler) Delete(c echo.Context) error {
	if err := h.repo.Delete(c.Request().Context(), mappingType(c), c.Param("sw_field")); err != nil {
		return err
	}
	return NoContentResponse(c)
}

func mappingType(c echo.Context) string {
	if t := c.QueryParam("type"); t != "" {
		return t
	}
	return models.MappingTypeProduct
}
