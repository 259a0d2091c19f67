// Package mcp implements the Model Context Protocol (MCP) server for PersonaRAG.
//
// The MCP server exposes the engine's entry points to agent runtimes:
//   - search_knowledge: hybrid retrieval over one namespace
//   - load_user_context: personalization snapshot for a user
//   - invalidate_user_context: drop cached snapshots after a write
//   - expand_query: inspect the synonym expansion a search would use
//   - ingest_knowledge: embed and store chunk records from a JSON file
//   - get_status: chunk counts, schema version, cache and provider state
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport. stdout is reserved
// for protocol messages; logs go to stderr and the log file.
//
// # Tool: search_knowledge
//
//	Request:
//	{
//	  "name": "search_knowledge",
//	  "arguments": {
//	    "query": "calm down before a job interview",
//	    "namespace": "mindset",
//	    "top_k": 3,
//	    "filters": {"patterns": ["anxiety"], "max_minutes": 10}
//	  }
//	}
//
//	Response:
//	{
//	  "keyword_query": "\"interview\" OR \"job interview\" ...",
//	  "results": [
//	    {"rank": 1, "id": "...", "source": "box_breathing.md", "relevance": 100, ...}
//	  ],
//	  "rendered": "[1] Source: box_breathing.md | Category: breathing | Relevance: 100%\n..."
//	}
//
// Filters are checked against the namespace: emergency_only is only valid
// for mindset, business_stage only for business.
//
// # Error Handling
//
// Handlers return *MCPError values:
//   - -32602: Invalid params (namespace, filters, top_k, path)
//   - -32603: Internal error (store failures)
//   - -32001: User not found
//   - -32002: Ingest in progress
//   - -32003: Embedding provider error
//   - -32004: Empty query
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "personarag": {
//	      "command": "/usr/local/bin/personarag",
//	      "args": ["serve"],
//	      "env": {"OPENAI_API_KEY": "...", "REDIS_URL": "rediss://..."}
//	    }
//	  }
//	}
package mcp
