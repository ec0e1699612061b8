package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/life-quote-server/internal/domain"
	"github.com/life-quote-server/internal/preferences"
)

// coverageParam reads the ?type= query parameter, defaulting to both lines.
func coverageParam(c *gin.Context) (domain.CoverageType, bool) {
	raw := strings.TrimSpace(c.Query("type"))
	if raw == "" {
		return domain.BOTH, true
	}
	coverage := domain.CoverageType(strings.ToLower(raw))
	if !coverage.IsValid() {
		return "", false
	}
	return coverage, true
}

func (s *Server) abortWithError(c *gin.Context, status int, code, message, details string) {
	apiErr := domain.NewAPIError(code, message, details, c.GetString("correlation_id"))
	c.AbortWithStatusJSON(status, apiErr)
}

// handleListConditions returns the screenable conditions for a coverage line.
func (s *Server) handleListConditions(c *gin.Context) {
	coverage, ok := coverageParam(c)
	if !ok {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid coverage type", "type must be term, fex or both")
		return
	}

	summaries, err := s.service.ListConditions(c.Request.Context(), coverage)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list conditions")
		s.abortWithError(c, http.StatusInternalServerError, domain.ErrRulesError, "failed to list conditions", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conditions": summaries,
		"count":      len(summaries),
	})
}

// handleSearchConditions ranks conditions against the ?q= query.
func (s *Server) handleSearchConditions(c *gin.Context) {
	coverage, ok := coverageParam(c)
	if !ok {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid coverage type", "type must be term, fex or both")
		return
	}

	query := c.Query("q")
	summaries, err := s.service.SearchConditions(c.Request.Context(), coverage, query)
	if err != nil {
		s.logger.WithError(err).Error("Failed to search conditions")
		s.abortWithError(c, http.StatusInternalServerError, domain.ErrRulesError, "failed to search conditions", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conditions": summaries,
		"count":      len(summaries),
		"query":      query,
	})
}

// handleQuotes runs the full quote pipeline: pricing, screening,
// aggregation, preference masking and sorting.
func (s *Server) handleQuotes(c *gin.Context) {
	var req domain.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid request body", err.Error())
		return
	}

	result, err := s.service.Quotes(c.Request.Context(), &req)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":      domain.ErrValidation,
				"field":      vErr.Field,
				"message":    vErr.Message,
				"request_id": c.GetString("correlation_id"),
			})
			return
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"coverage":    req.Coverage,
			"face_amount": req.FaceAmount,
		}).Error("Quote run failed")
		s.abortWithError(c, http.StatusBadGateway, domain.ErrPricingError, "quote lookup failed", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quotes":   result.Quotes,
		"outcomes": result.Outcomes,
		"cached":   result.Cached,
		"count":    len(result.Quotes),
	})
}

// handleCarrierCatalog returns the grouped carrier catalog used by
// preference editors.
func (s *Server) handleCarrierCatalog(c *gin.Context) {
	coverage, ok := coverageParam(c)
	if !ok || coverage == domain.BOTH {
		coverage = domain.TERM
		if strings.EqualFold(c.Query("type"), string(domain.FEX)) {
			coverage = domain.FEX
		}
	}

	groups := preferences.GroupsFor(coverage)
	c.JSON(http.StatusOK, gin.H{
		"coverage": coverage,
		"groups":   groups,
	})
}

// handleGetPreferences returns the stored preferences for a location,
// falling back to everything-visible defaults when none are stored.
func (s *Server) handleGetPreferences(c *gin.Context) {
	locationID := c.Param("locationID")

	if s.prefs == nil {
		c.JSON(http.StatusOK, preferences.DefaultPreferences(locationID))
		return
	}

	prefs, err := s.prefs.Get(c.Request.Context(), locationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusOK, preferences.DefaultPreferences(locationID))
			return
		}
		s.logger.WithError(err).WithField("location_id", locationID).Error("Failed to load carrier preferences")
		s.abortWithError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to load carrier preferences", "")
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// handlePutPreferences stores the preferences for a location.
func (s *Server) handlePutPreferences(c *gin.Context) {
	locationID := c.Param("locationID")

	if s.prefs == nil {
		s.abortWithError(c, http.StatusServiceUnavailable, domain.ErrDatabaseError, "preference store unavailable", "")
		return
	}

	var prefs domain.CarrierPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid request body", err.Error())
		return
	}
	prefs.LocationID = locationID

	if err := s.prefs.Put(c.Request.Context(), &prefs); err != nil {
		s.logger.WithError(err).WithField("location_id", locationID).Error("Failed to store carrier preferences")
		s.abortWithError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to store carrier preferences", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"locationId": locationID,
		"status":     "saved",
	})
}
