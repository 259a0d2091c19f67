package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/personarag/internal/expander"
	"github.com/dshills/personarag/internal/ingest"
	"github.com/dshills/personarag/internal/retriever"
	"github.com/dshills/personarag/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound         = -32001 // User has no profile
	ErrorCodeIngestInProgress = -32002 // Another ingest is already running
	ErrorCodeProviderError    = -32003 // Embedding provider rejected or timed out
	ErrorCodeEmptyQuery       = -32004 // Query parameter is empty
)

// handleSearchKnowledge handles the search_knowledge tool invocation
func (s *Server) handleSearchKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	ns, err := namespaceArg(args)
	if err != nil {
		return nil, err
	}

	topK := getIntDefault(args, "top_k", retriever.DefaultTopK)
	if topK < 1 || topK > retriever.MaxTopK {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("top_k must be between 1 and %d", retriever.MaxTopK), map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	filters, err := parseFilters(args["filters"])
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid filters", map[string]interface{}{
			"param":  "filters",
			"reason": err.Error(),
		})
	}

	resp, err := s.app.Retriever.Search(ctx, retriever.SearchRequest{
		Query:     query,
		Namespace: ns,
		Filters:   filters,
		TopK:      topK,
	})
	if err != nil {
		return nil, toMCPError("search failed", err)
	}

	response := map[string]interface{}{
		"namespace":         ns,
		"keyword_query":     resp.KeywordQuery,
		"vector_candidates": resp.VectorCandidates,
		"text_candidates":   resp.TextCandidates,
		"duration_ms":       resp.Duration.Milliseconds(),
		"results":           retriever.Views(resp.Results),
	}
	if getBoolDefault(args, "render", true) {
		response["rendered"] = retriever.Render(resp.Results)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleLoadUserContext handles the load_user_context tool invocation
func (s *Server) handleLoadUserContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	userID, err := userIDArg(args)
	if err != nil {
		return nil, err
	}
	ns, err := namespaceArg(args)
	if err != nil {
		return nil, err
	}

	uc, err := s.app.Loader.Load(ctx, userID, ns, getBoolDefault(args, "use_cache", true))
	if err != nil {
		return nil, toMCPError("failed to load user context", err)
	}

	response := map[string]interface{}{
		"context":  uc,
		"rendered": uc.Render(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleInvalidateUserContext handles the invalidate_user_context tool invocation
func (s *Server) handleInvalidateUserContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	userID, err := userIDArg(args)
	if err != nil {
		return nil, err
	}

	removed := s.app.Loader.Invalidate(ctx, userID)
	response := map[string]interface{}{
		"user_id": userID,
		"removed": removed,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleExpandQuery handles the expand_query tool invocation
func (s *Server) handleExpandQuery(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	var (
		dict   expander.Dictionary
		source string
	)
	if name := getStringDefault(args, "dictionary", ""); name != "" {
		d, ok := s.app.Dictionaries.Lookup(name)
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "unknown dictionary", map[string]interface{}{
				"param": "dictionary",
				"value": name,
			})
		}
		dict, source = d, name
	} else {
		ns, err := namespaceArg(args)
		if err != nil {
			return nil, err
		}
		route, _ := s.app.Retriever.Routes().Lookup(ns)
		dict, source = route.Dictionary, string(ns)
	}

	response := map[string]interface{}{
		"query":         query,
		"dictionary":    source,
		"terms":         expander.ExpandQuery(query, dict),
		"keyword_query": expander.ExpandQueryForFTS(query, dict),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIngestKnowledge handles the ingest_knowledge tool invocation
func (s *Server) handleIngestKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if !filepath.IsAbs(path) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": "path must be absolute",
		})
	}

	ns, err := namespaceArg(args)
	if err != nil {
		return nil, err
	}

	records, err := ingest.LoadFile(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "failed to read records", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	if !s.app.IngestLock.TryAcquire() {
		return nil, newMCPError(ErrorCodeIngestInProgress, "another ingest is already running", nil)
	}
	defer s.app.IngestLock.Release()

	stats, err := s.app.Ingester.Ingest(ctx, ns, records, &ingest.Config{
		BatchSize: getIntDefault(args, "batch_size", ingest.DefaultBatchSize),
	})
	if err != nil {
		data := map[string]interface{}{"error": err.Error()}
		if stats != nil {
			data["chunks_ingested"] = stats.ChunksIngested
		}
		return nil, newMCPError(codeFor(err), "ingest failed", data)
	}

	response := map[string]interface{}{
		"namespace":       ns,
		"chunks_ingested": stats.ChunksIngested,
		"chunks_failed":   stats.ChunksFailed,
		"batches":         stats.Batches,
		"tokens_approx":   stats.TokensApprox,
		"duration_ms":     stats.Duration.Milliseconds(),
	}
	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.app.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"store":      status.Store,
		"cache":      map[string]interface{}{"backend": status.Cache, "reachable": status.CacheOK},
		"embeddings": map[string]interface{}{"provider": status.Provider, "model": status.Model, "dimension": status.Dimension, "stats": status.Embeddings},
		"checked_at": status.CheckedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// toMCPError maps engine errors onto MCP error codes
func toMCPError(message string, err error) error {
	return newMCPError(codeFor(err), message, map[string]interface{}{
		"error": err.Error(),
	})
}

func codeFor(err error) int {
	switch {
	case errors.Is(err, types.ErrEmptyQuery):
		return ErrorCodeEmptyQuery
	case errors.Is(err, types.ErrInvalidNamespace), errors.Is(err, types.ErrInvalidFilter), errors.Is(err, types.ErrInvalidInput):
		return ErrorCodeInvalidParams
	case errors.Is(err, types.ErrNotFound):
		return ErrorCodeNotFound
	case errors.Is(err, types.ErrEmbeddingProvider):
		return ErrorCodeProviderError
	default:
		return ErrorCodeInternalError
	}
}

func namespaceArg(args map[string]interface{}) (types.Namespace, error) {
	raw, _ := args["namespace"].(string)
	ns, err := types.ParseNamespace(raw)
	if err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid namespace", map[string]interface{}{
			"param":   "namespace",
			"value":   raw,
			"allowed": types.AllNamespaces,
		})
	}
	return ns, nil
}

func userIDArg(args map[string]interface{}) (string, error) {
	userID, ok := args["user_id"].(string)
	if !ok || strings.TrimSpace(userID) == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "user_id parameter is required", map[string]interface{}{
			"param":  "user_id",
			"reason": "missing or empty",
		})
	}
	return strings.TrimSpace(userID), nil
}

// parseFilters decodes the filters argument, rejecting unknown fields
func parseFilters(raw interface{}) (types.Filters, error) {
	var f types.Filters
	if raw == nil {
		return f, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return f, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return f, err
	}
	return f, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(out)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
