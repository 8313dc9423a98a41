// Package mcp provides an MCP (Model Context Protocol) server adapter for docindex.
// It exposes the document operations as tools so assistants can store, find
// and curate documents in the index.
package mcp

import "errors"

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service is required")
