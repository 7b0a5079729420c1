// Package mcp implements the Model Context Protocol (MCP) server for coderag.
//
// The server exposes four tools to AI coding assistants:
//   - index_codebase: ingest the project corpus into the retrieval index
//   - query_context: retrieve relevant code chunks for a question
//   - get_stats: report the active backend and index contents
//   - reset_index: drop the index and its persisted snapshot
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client -> Server: {"method": "tools/call", "params": {...}}
//	Server -> Client: {"result": {...}}
//
// The server reads protocol messages on stdin and writes responses to
// stdout. All logging goes to stderr so it never corrupts the protocol
// stream.
//
// # Basic Usage
//
// The MCP server is typically started via the serve command:
//
//	coderag serve
//
// The server is bound to one project root at startup. index_codebase
// discovers the corpus under that root, honoring .gitignore and
// .coderagignore, and reuses a persisted snapshot when the corpus
// fingerprint is unchanged.
//
// # Tool: index_codebase
//
//	Request:
//	{
//	  "name": "index_codebase",
//	  "arguments": {"force_reindex": false}
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "warm_start": false,
//	  "files_scanned": 132,
//	  "chunks_indexed": 417,
//	  "backend": "feature_heuristic",
//	  "persisted": true
//	}
//
// # Tool: query_context
//
//	Request:
//	{
//	  "name": "query_context",
//	  "arguments": {"query": "where is user input deserialized?", "top_k": 5}
//	}
//
// The response is plain text: labeled context blocks ordered by
// relevance, each carrying the file name, language, issue count, and
// complexity of the chunk.
//
// # Error Codes
//
// Beyond the standard JSON-RPC codes, the server uses:
//
//	-32002  ingestion already in progress
//	-32003  corpus not indexed yet
//	-32004  query parameter is empty
package mcp
