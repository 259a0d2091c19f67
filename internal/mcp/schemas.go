package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/personarag/internal/retriever"
)

var namespaceProperty = map[string]interface{}{
	"type":        "string",
	"description": "Knowledge namespace: onboarding (reentry), mindset (behavioral), or business",
	"enum":        []string{"onboarding", "mindset", "business"},
}

var userIDProperty = map[string]interface{}{
	"type":        "string",
	"description": "User identifier",
}

// searchKnowledgeTool returns the tool definition for search_knowledge
func searchKnowledgeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_knowledge",
		Description: "Hybrid vector + keyword search over a namespace's knowledge base, fused with reciprocal rank fusion",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language question or keywords",
				},
				"namespace": namespaceProperty,
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"default":     retriever.DefaultTopK,
					"minimum":     1,
					"maximum":     retriever.MaxTopK,
				},
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Optional filters; allowed fields depend on the namespace",
					"properties": map[string]interface{}{
						"category":       map[string]interface{}{"type": "string"},
						"difficulty":     map[string]interface{}{"type": "string", "enum": []string{"beginner", "intermediate", "advanced"}},
						"business_stage": map[string]interface{}{"type": "string"},
						"patterns":       stringArray("Chunk must list every pattern (mindset)"),
						"temperaments":   stringArray("Chunk must list every temperament (mindset)"),
						"populations":    stringArray("Chunk must list every population (onboarding)"),
						"topics":         stringArray("Chunk must list every topic (onboarding, business)"),
						"min_minutes":    map[string]interface{}{"type": "integer", "minimum": 0},
						"max_minutes":    map[string]interface{}{"type": "integer", "minimum": 0},
						"emergency_only": map[string]interface{}{"type": "boolean", "description": "Only emergency protocols (mindset)"},
					},
				},
				"render": map[string]interface{}{
					"type":        "boolean",
					"description": "Include the results formatted as one prompt-ready text block",
					"default":     true,
				},
			},
			Required: []string{"query", "namespace"},
		},
	}
}

// loadUserContextTool returns the tool definition for load_user_context
func loadUserContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "load_user_context",
		Description: "Load a user's personalization snapshot: profile, progress, engagement signals and risk",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id":   userIDProperty,
				"namespace": namespaceProperty,
				"use_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "Serve a cached snapshot when one exists",
					"default":     true,
				},
			},
			Required: []string{"user_id", "namespace"},
		},
	}
}

// invalidateUserContextTool returns the tool definition for invalidate_user_context
func invalidateUserContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "invalidate_user_context",
		Description: "Drop a user's cached snapshots in every namespace after a write",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": userIDProperty,
			},
			Required: []string{"user_id"},
		},
	}
}

// expandQueryTool returns the tool definition for expand_query
func expandQueryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "expand_query",
		Description: "Show the synonym expansion and keyword query a search would use",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query":     map[string]interface{}{"type": "string", "description": "Term or query to expand"},
				"namespace": namespaceProperty,
				"dictionary": map[string]interface{}{
					"type":        "string",
					"description": "Expand against one dictionary instead of the namespace's",
					"enum":        []string{"population", "business", "behavioral"},
				},
			},
			Required: []string{"query"},
		},
	}
}

// ingestKnowledgeTool returns the tool definition for ingest_knowledge
func ingestKnowledgeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_knowledge",
		Description: "Embed and store knowledge chunks from a JSON file into a namespace",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a JSON array of chunk records",
				},
				"namespace": namespaceProperty,
				"batch_size": map[string]interface{}{
					"type":    "integer",
					"default": 100,
					"minimum": 1,
					"maximum": 2048,
				},
			},
			Required: []string{"path", "namespace"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report chunk counts per namespace, schema version, cache and embedding provider state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

func stringArray(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items":       map[string]interface{}{"type": "string"},
	}
}
