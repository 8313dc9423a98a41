package mcp

import (
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Document provides the document operations behind every tool.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Document == nil {
		return ErrMissingDocumentService
	}
	return nil
}

// Options tune which tools are exposed and how they are described.
type Options struct {
	// ReadOnly leaves out every tool that writes.
	ReadOnly bool

	// ToolDescriptions overrides tool descriptions by tool name.
	ToolDescriptions map[string]string
}
