package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/picregistry/internal/config"
	apierrors "github.com/stwalsh4118/picregistry/internal/errors"
	"github.com/stwalsh4118/picregistry/internal/middleware"
	"github.com/stwalsh4118/picregistry/internal/models"
	"github.com/stwalsh4118/picregistry/internal/services"
)

// PICHandler handles PIC registry lookup requests.
type PICHandler struct {
	service services.PICService
}

// NewPICHandler creates a new PICHandler instance.
func NewPICHandler(service services.PICService) *PICHandler {
	return &PICHandler{
		service: service,
	}
}

// SearchRequest represents the query parameters for the search endpoint.
type SearchRequest struct {
	Query        string `form:"q" binding:"max=100"`
	Jurisdiction string `form:"jurisdiction" binding:"omitempty,alpha,max=8"`
	Limit        int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// SearchResponse represents the response for the search endpoint.
type SearchResponse struct {
	Results []PICData `json:"results"`
	Count   int       `json:"count"`
}

// PICResponse represents the response for the single-record endpoint.
type PICResponse struct {
	PIC PICData `json:"pic"`
}

// PICData is the API view of a registry record.
type PICData struct {
	IngestedAt        time.Time `json:"ingested_at"`
	PICCode           string    `json:"pic_code"`
	Jurisdiction      string    `json:"jurisdiction"`
	PropertyName      string    `json:"property_name,omitempty"`
	Region            string    `json:"region,omitempty"`
	LGA               string    `json:"lga,omitempty"`
	SourceVersionDate string    `json:"source_version_date"`
	IsActive          bool      `json:"is_active"`
	HasBMP            bool      `json:"has_bmp"`
}

// Search handles GET /api/v1/pics.
func (h *PICHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Debug("Processing PIC search", map[string]interface{}{
			"query":        req.Query,
			"jurisdiction": req.Jurisdiction,
			"limit":        req.Limit,
		})
	}

	records, err := h.service.SearchPICs(c.Request.Context(), req.Query, req.Jurisdiction, req.Limit)
	if err != nil {
		if errors.Is(err, services.ErrInvalidLimit) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		if errors.Is(err, services.ErrRegistryUnavailable) {
			apierrors.ServiceUnavailable(c, "PIC registry is temporarily unavailable", err)
			return
		}
		apierrors.InternalServerError(c, "Failed to search PIC registry", err)
		return
	}

	results := make([]PICData, 0, len(records))
	for i := range records {
		results = append(results, mapPICRecordToDTO(&records[i]))
	}

	c.JSON(http.StatusOK, SearchResponse{
		Results: results,
		Count:   len(results),
	})
}

// Get handles GET /api/v1/pics/:code.
func (h *PICHandler) Get(c *gin.Context) {
	code := c.Param("code")

	rec, err := h.service.GetPIC(c.Request.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPICCode):
			apierrors.InvalidPICCode(c, code)
		case errors.Is(err, services.ErrPICNotFound):
			apierrors.NotFound(c, "No property registered under this PIC")
		case errors.Is(err, services.ErrRegistryUnavailable):
			apierrors.ServiceUnavailable(c, "PIC registry is temporarily unavailable", err)
		default:
			apierrors.InternalServerError(c, "Failed to query PIC registry", err)
		}
		return
	}

	c.JSON(http.StatusOK, PICResponse{PIC: mapPICRecordToDTO(rec)})
}

// mapPICRecordToDTO flattens nullable text to empty strings and renders the
// source version as a calendar date.
func mapPICRecordToDTO(rec *models.PICRecord) PICData {
	dto := PICData{
		PICCode:      rec.PICCode,
		Jurisdiction: rec.Jurisdiction,
		IsActive:     rec.IsActive,
		HasBMP:       rec.HasBMP,
		IngestedAt:   rec.IngestedAt,
	}
	if !rec.SourceVersionDate.IsZero() {
		dto.SourceVersionDate = rec.SourceVersionDate.Format(config.DateLayout)
	}
	if rec.PropertyName != nil {
		dto.PropertyName = *rec.PropertyName
	}
	if rec.Region != nil {
		dto.Region = *rec.Region
	}
	if rec.LGA != nil {
		dto.LGA = *rec.LGA
	}
	return dto
}
