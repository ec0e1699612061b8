// Package mcp exposes condition screening and quoting as MCP tools over
// stdio, so AI agents can drive the eligibility engine directly.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	litecfg "github.com/life-quote-server/internal/config"
	"github.com/life-quote-server/internal/database"
	"github.com/life-quote-server/internal/domain"
	"github.com/life-quote-server/internal/eligibility"
	"github.com/life-quote-server/internal/pricing"
	"github.com/life-quote-server/internal/quotes"
	"github.com/life-quote-server/internal/rules"
)

// Server is a standalone MCP server. It needs only the rule document on
// disk; the rate-table database is optional and gates the quote tool.
type Server struct {
	config    *litecfg.LiteConfig
	mcpServer *mcp.Server
	service   *quotes.Service
	db        *database.DB
	logger    *logrus.Logger
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server) error

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithService sets a pre-built quoting service, used by tests.
func WithService(service *quotes.Service) ServerOption {
	return func(s *Server) error {
		s.service = service
		return nil
	}
}

// NewServer creates a new standalone MCP server instance.
func NewServer(ctx context.Context, cfg *litecfg.LiteConfig, opts ...ServerOption) (*Server, error) {
	server := &Server{
		config: cfg,
		logger: logrus.New(),
	}

	// Configure default logger
	if cfg.LogFormat == "text" {
		server.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		server.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	server.logger.SetLevel(level)

	// Apply options
	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.service == nil {
		if err := server.buildService(ctx); err != nil {
			return nil, err
		}
	}

	serverInfo := &mcp.Implementation{
		Name:    "life-quote-server",
		Version: "v1.0.0",
	}
	server.mcpServer = mcp.NewServer(serverInfo, nil)
	server.registerTools()

	server.logger.Info("MCP server initialized")
	return server, nil
}

// buildService wires the quoting service from the lite configuration: a
// file-backed rule repository, in-process screening, and an optional
// Postgres quote source.
func (s *Server) buildService(ctx context.Context) error {
	repo := rules.NewFileRepository(domain.RulesConfig{
		Path:           s.config.RulesPath,
		ReloadInterval: s.config.RulesReloadInterval,
	}, s.logger)
	traverser := rules.NewTraverser(s.logger)
	aggregator := eligibility.NewAggregator(eligibility.NewContainmentMatcher(), s.logger)

	var source domain.QuoteSource
	if s.config.HasRateTables() {
		db, err := database.NewConnectionFromURL(ctx, s.config.DatabaseURL, s.logger)
		if err != nil {
			return fmt.Errorf("failed to connect rate tables: %w", err)
		}
		s.db = db
		src, err := pricing.NewPostgresSource(db, s.logger)
		if err != nil {
			db.Close()
			return fmt.Errorf("failed to create quote source: %w", err)
		}
		source = src
	} else {
		s.logger.Info("No rate-table database configured, quote tool disabled")
	}

	s.service = quotes.NewService(repo, traverser, aggregator, source, nil, nil, s.logger)
	return nil
}

// Start runs the MCP server over stdio until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting life-quote MCP server on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// registerTools registers the tool set with the MCP SDK.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_conditions",
		Description: "List the health conditions that can be screened for a coverage line (term, fex or both).",
	}, s.handleListConditions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "search_conditions",
		Description: "Search health conditions by name. Exact matches rank first, then word-prefix matches, then substring matches.",
	}, s.handleSearchConditions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "screen_conditions",
		Description: "Walk the underwriting decision tree for each reported condition and return per-carrier verdicts.",
	}, s.handleScreenConditions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_quotes",
		Description: "Price life insurance quotes for an applicant profile, annotated with eligibility decisions from condition screening.",
	}, s.handleGetQuotes)

	s.logger.WithField("tool_count", 4).Info("Registered MCP tools")
}
