package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/life-quote-server/internal/domain"
)

// ListConditionsParams defines parameters for the list_conditions tool
type ListConditionsParams struct {
	Coverage string `json:"coverage,omitempty"`
}

// SearchConditionsParams defines parameters for the search_conditions tool
type SearchConditionsParams struct {
	Query    string `json:"query"`
	Coverage string `json:"coverage,omitempty"`
}

// ScreenConditionsParams defines parameters for the screen_conditions tool
type ScreenConditionsParams struct {
	Coverage   string                     `json:"coverage"`
	Conditions []domain.SelectedCondition `json:"conditions"`
}

// ScreenConditionsResult defines the result structure for screen_conditions
type ScreenConditionsResult struct {
	Outcomes  []domain.TraversalOutcome         `json:"outcomes"`
	Decisions map[string]domain.CarrierDecision `json:"decisions"`
}

// GetQuotesParams defines parameters for the get_quotes tool
type GetQuotesParams struct {
	Coverage          string                     `json:"coverage"`
	FaceAmount        int                        `json:"faceAmount"`
	Sex               string                     `json:"sex"`
	Age               int                        `json:"age,omitempty"`
	BirthDate         string                     `json:"birthDate,omitempty"`
	Tobacco           bool                       `json:"tobacco,omitempty"`
	TermLength        int                        `json:"termLength,omitempty"`
	UnderwritingClass string                     `json:"underwritingClass,omitempty"`
	SortBy            string                     `json:"sortBy,omitempty"`
	Conditions        []domain.SelectedCondition `json:"conditions,omitempty"`
}

func parseCoverage(raw string, fallback domain.CoverageType) (domain.CoverageType, error) {
	if strings.TrimSpace(raw) == "" {
		if fallback == "" {
			return "", fmt.Errorf("coverage is required")
		}
		return fallback, nil
	}
	coverage := domain.CoverageType(strings.ToLower(strings.TrimSpace(raw)))
	if !coverage.IsValid() {
		return "", fmt.Errorf("coverage must be term, fex or both, got %q", raw)
	}
	return coverage, nil
}

// handleListConditions handles the list_conditions tool invocation
func (s *Server) handleListConditions(ctx context.Context, req *mcp.CallToolRequest, params ListConditionsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_conditions").Info("Tool invoked")

	coverage, err := parseCoverage(params.Coverage, domain.BOTH)
	if err != nil {
		return s.errorResult("Invalid coverage", err), nil, nil
	}

	summaries, err := s.service.ListConditions(ctx, coverage)
	if err != nil {
		return s.errorResult("Failed to list conditions", err), nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("%d screenable conditions for %s coverage", len(summaries), coverage),
			},
		},
	}, summaries, nil
}

// handleSearchConditions handles the search_conditions tool invocation
func (s *Server) handleSearchConditions(ctx context.Context, req *mcp.CallToolRequest, params SearchConditionsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "search_conditions").Info("Tool invoked")

	coverage, err := parseCoverage(params.Coverage, domain.BOTH)
	if err != nil {
		return s.errorResult("Invalid coverage", err), nil, nil
	}

	summaries, err := s.service.SearchConditions(ctx, coverage, params.Query)
	if err != nil {
		return s.errorResult("Failed to search conditions", err), nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("%d conditions match %q", len(summaries), params.Query),
			},
		},
	}, summaries, nil
}

// handleScreenConditions handles the screen_conditions tool invocation
func (s *Server) handleScreenConditions(ctx context.Context, req *mcp.CallToolRequest, params ScreenConditionsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "screen_conditions").Info("Tool invoked")

	coverage, err := parseCoverage(params.Coverage, "")
	if err != nil {
		return s.errorResult("Invalid coverage", err), nil, nil
	}
	if coverage == domain.BOTH {
		return s.errorResult("Invalid coverage", fmt.Errorf("screening requires a single line, term or fex")), nil, nil
	}
	if len(params.Conditions) == 0 {
		return s.errorResult("Missing required parameter", fmt.Errorf("conditions is required")), nil, nil
	}

	outcomes := s.service.Screen(ctx, coverage, params.Conditions)
	decisions := s.service.Aggregate(outcomes)

	declined := 0
	for _, d := range decisions {
		if d.Declined {
			declined++
		}
	}

	result := ScreenConditionsResult{
		Outcomes:  outcomes,
		Decisions: decisions,
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Screened %d conditions: %d carriers declined", len(params.Conditions), declined),
			},
		},
	}, result, nil
}

// handleGetQuotes handles the get_quotes tool invocation
func (s *Server) handleGetQuotes(ctx context.Context, req *mcp.CallToolRequest, params GetQuotesParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "get_quotes").Info("Tool invoked")

	if !s.service.HasQuoteSource() {
		return s.errorResult("Quote lookup unavailable", fmt.Errorf("no rate-table database configured, set LIFEQUOTE_DATABASE_URL")), nil, nil
	}

	coverage, err := parseCoverage(params.Coverage, "")
	if err != nil {
		return s.errorResult("Invalid coverage", err), nil, nil
	}

	quoteReq := &domain.QuoteRequest{
		Coverage:          coverage,
		FaceAmount:        params.FaceAmount,
		Sex:               params.Sex,
		Age:               params.Age,
		BirthDate:         params.BirthDate,
		Tobacco:           params.Tobacco,
		TermLength:        params.TermLength,
		UnderwritingClass: params.UnderwritingClass,
		SortBy:            domain.SortMode(params.SortBy),
		Conditions:        params.Conditions,
	}

	result, err := s.service.Quotes(ctx, quoteReq)
	if err != nil {
		return s.errorResult("Quote run failed", err), nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("%d quotes for %s coverage at $%d face amount", len(result.Quotes), coverage, params.FaceAmount),
			},
		},
	}, result, nil
}

// errorResult creates a standardized error result for tool calls
func (s *Server) errorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
