package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

// Tool names.
const (
	ToolStore       = "docindex-store"
	ToolFind        = "docindex-find"
	ToolList        = "docindex-list"
	ToolCollections = "docindex-collections"
	ToolUpdate      = "docindex-update"
	ToolAppend      = "docindex-append"
	ToolSetMetadata = "docindex-set-metadata"
	ToolAddTags     = "docindex-add-tags"
	ToolRemoveTags  = "docindex-remove-tags"
	ToolDelete      = "docindex-delete"
)

var defaultDescriptions = map[string]string{
	ToolStore: "Keep the memory for later use, when you are asked to remember something. " +
		"Stores a new document; returns its document_id.",
	ToolFind: "Look up memories by meaning. Use this tool when you need to find documents " +
		"related to a question, a topic or a previous conversation.",
	ToolList: "List stored documents matching a metadata filter, without a semantic query.",
	ToolCollections: "List the available collections.",
	ToolUpdate: "Replace the content of one stored document. Only composed documents can be " +
		"updated; identify it with a filter, preferably by document_id.",
	ToolAppend: "Append text to the end of one stored composed document.",
	ToolSetMetadata: "Change the category, source_ref or tags of every document matching the filter.",
	ToolAddTags:     "Add tags to every document matching the filter.",
	ToolRemoveTags:  "Remove tags from every document matching the filter.",
	ToolDelete:      "Delete one stored composed document identified by the filter.",
}

// FilterInput selects documents. All set fields must match.
type FilterInput struct {
	DocumentID string   `json:"document_id,omitempty" jsonschema:"exact document identifier"`
	Title      string   `json:"title,omitempty" jsonschema:"substring of the document title"`
	Content    string   `json:"content,omitempty" jsonschema:"substring of the chunk text"`
	Category   string   `json:"category,omitempty" jsonschema:"exact category"`
	SourceType string   `json:"source_type,omitempty" jsonschema:"exact source type such as composed or pdf"`
	SourceRef  string   `json:"source_ref,omitempty" jsonschema:"exact source reference"`
	Tags       []string `json:"tags,omitempty" jsonschema:"documents carrying any of these tags"`
}

func (f *FilterInput) toFilter() domain.Filter {
	if f == nil {
		return domain.Filter{}
	}
	return domain.Filter{
		DocumentID: strings.TrimSpace(f.DocumentID),
		Title:      f.Title,
		Content:    f.Content,
		Category:   f.Category,
		SourceType: domain.SourceType(f.SourceType),
		SourceRef:  f.SourceRef,
		Tags:       f.Tags,
	}
}

// StoreInput is the input schema for the store tool.
type StoreInput struct {
	Title      string   `json:"title" jsonschema:"short descriptive title"`
	Content    string   `json:"content" jsonschema:"the text to remember"`
	Category   string   `json:"category,omitempty" jsonschema:"optional category"`
	Tags       []string `json:"tags,omitempty" jsonschema:"optional tags"`
	Collection string   `json:"collection,omitempty" jsonschema:"target collection; the default is used when empty"`
}

// FindInput is the input schema for the find tool.
type FindInput struct {
	Query      string       `json:"query" jsonschema:"what to look for"`
	Filter     *FilterInput `json:"filter,omitempty" jsonschema:"optional metadata filter"`
	Limit      int          `json:"limit,omitempty" jsonschema:"maximum number of chunk hits, taken before grouping into documents"`
	Collection string       `json:"collection,omitempty" jsonschema:"collection to search"`
}

// ListInput is the input schema for the list tool.
type ListInput struct {
	Filter     *FilterInput `json:"filter,omitempty" jsonschema:"optional metadata filter"`
	Limit      int          `json:"limit,omitempty" jsonschema:"maximum number of documents"`
	Collection string       `json:"collection,omitempty" jsonschema:"collection to list"`
}

// CollectionsInput is the empty input schema for the collections tool.
type CollectionsInput struct{}

// UpdateInput is the input schema for the update tool.
type UpdateInput struct {
	Filter     FilterInput `json:"filter" jsonschema:"selects the document to update"`
	Content    string      `json:"content" jsonschema:"the new full content"`
	Title      string      `json:"title,omitempty" jsonschema:"optional new title"`
	Category   *string     `json:"category,omitempty" jsonschema:"optional new category; the current one is kept when omitted"`
	Tags       []string    `json:"tags,omitempty" jsonschema:"optional replacement tag set; the current tags are kept when omitted"`
	Collection string      `json:"collection,omitempty" jsonschema:"collection holding the document"`
}

// AppendInput is the input schema for the append tool.
type AppendInput struct {
	Filter     FilterInput `json:"filter" jsonschema:"selects the document to extend"`
	Content    string      `json:"content" jsonschema:"text to append"`
	Collection string      `json:"collection,omitempty" jsonschema:"collection holding the document"`
}

// SetMetadataInput is the input schema for the set-metadata tool.
type SetMetadataInput struct {
	Filter     FilterInput `json:"filter" jsonschema:"selects the documents to change"`
	Category   *string     `json:"category,omitempty" jsonschema:"new category"`
	SourceRef  *string     `json:"source_ref,omitempty" jsonschema:"new source reference"`
	Tags       []string    `json:"tags,omitempty" jsonschema:"replacement tag set"`
	Collection string      `json:"collection,omitempty" jsonschema:"collection holding the documents"`
}

// TagsInput is the input schema for the add-tags and remove-tags tools.
type TagsInput struct {
	Filter     FilterInput `json:"filter" jsonschema:"selects the documents to change"`
	Tags       []string    `json:"tags" jsonschema:"tags to add or remove"`
	Collection string      `json:"collection,omitempty" jsonschema:"collection holding the documents"`
}

// DeleteInput is the input schema for the delete tool.
type DeleteInput struct {
	Filter     FilterInput `json:"filter" jsonschema:"selects the document to delete"`
	Collection string      `json:"collection,omitempty" jsonschema:"collection holding the document"`
}

// registerTools registers all tool handlers with the MCP server.
// Write tools are left out in read-only mode.
func (s *Server) registerTools() {
	addTool(s, ToolFind, false, s.handleFind)
	addTool(s, ToolList, false, s.handleList)
	addTool(s, ToolCollections, false, s.handleCollections)
	addTool(s, ToolStore, true, s.handleStore)
	addTool(s, ToolUpdate, true, s.handleUpdate)
	addTool(s, ToolAppend, true, s.handleAppend)
	addTool(s, ToolSetMetadata, true, s.handleSetMetadata)
	addTool(s, ToolAddTags, true, s.handleAddTags)
	addTool(s, ToolRemoveTags, true, s.handleRemoveTags)
	addTool(s, ToolDelete, true, s.handleDelete)
}

func addTool[In any](s *Server, name string, writes bool, h mcp.ToolHandlerFor[In, any]) {
	if writes && s.opts.ReadOnly {
		return
	}
	readOnly := !writes
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        name,
		Description: s.description(name),
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: readOnly},
	}, h)
	s.tools = append(s.tools, name)
}

func (s *Server) description(name string) string {
	if d, ok := s.opts.ToolDescriptions[name]; ok && strings.TrimSpace(d) != "" {
		return d
	}
	return defaultDescriptions[name]
}

func (s *Server) handleStore(ctx context.Context, _ *mcp.CallToolRequest, in StoreInput) (*mcp.CallToolResult, any, error) {
	doc, err := s.ports.Document.Store(ctx, driving.StoreRequest{
		Collection: in.Collection,
		Title:      in.Title,
		Content:    in.Content,
		Category:   in.Category,
		Tags:       in.Tags,
	})
	if err != nil {
		return s.failure(ToolStore, err)
	}
	return textResult("Stored document " + doc.ID + ".\n" + formatDocument(doc, 0, false)), nil, nil
}

func (s *Server) handleFind(ctx context.Context, _ *mcp.CallToolRequest, in FindInput) (*mcp.CallToolResult, any, error) {
	results, err := s.ports.Document.Find(ctx, driving.FindRequest{
		Collection: in.Collection,
		Query:      in.Query,
		Filter:     in.Filter.toFilter(),
		Limit:      in.Limit,
	})
	if err != nil {
		return s.failure(ToolFind, err)
	}
	return textResult(formatResults("Found documents:", results, true)), nil, nil
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, in ListInput) (*mcp.CallToolResult, any, error) {
	results, err := s.ports.Document.List(ctx, driving.ListRequest{
		Collection: in.Collection,
		Filter:     in.Filter.toFilter(),
		Limit:      in.Limit,
	})
	if err != nil {
		return s.failure(ToolList, err)
	}
	return textResult(formatResults("Documents:", results, false)), nil, nil
}

func (s *Server) handleCollections(ctx context.Context, _ *mcp.CallToolRequest, _ CollectionsInput) (*mcp.CallToolResult, any, error) {
	names, err := s.ports.Document.Collections(ctx)
	if err != nil {
		return s.failure(ToolCollections, err)
	}
	if len(names) == 0 {
		return textResult("No collections found"), nil, nil
	}
	return textResult("Available collections: " + strings.Join(names, ", ")), nil, nil
}

func (s *Server) handleUpdate(ctx context.Context, _ *mcp.CallToolRequest, in UpdateInput) (*mcp.CallToolResult, any, error) {
	out, err := s.ports.Document.Update(ctx, driving.UpdateRequest{
		Collection: in.Collection,
		Filter:     in.Filter.toFilter(),
		Content:    in.Content,
		Title:      in.Title,
		Patch:      driving.MetadataPatch{Category: in.Category, Tags: in.Tags},
	})
	if err != nil {
		return s.failure(ToolUpdate, err)
	}
	return textResult(formatOutcome(out)), nil, nil
}

func (s *Server) handleAppend(ctx context.Context, _ *mcp.CallToolRequest, in AppendInput) (*mcp.CallToolResult, any, error) {
	out, err := s.ports.Document.Append(ctx, driving.AppendRequest{
		Collection: in.Collection,
		Filter:     in.Filter.toFilter(),
		Content:    in.Content,
	})
	if err != nil {
		return s.failure(ToolAppend, err)
	}
	return textResult(formatOutcome(out)), nil, nil
}

func (s *Server) handleSetMetadata(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	in SetMetadataInput,
) (*mcp.CallToolResult, any, error) {
	res, err := s.ports.Document.SetMetadata(ctx, driving.MetadataRequest{
		Collection: in.Collection,
		Filter:     in.Filter.toFilter(),
		Patch: driving.MetadataPatch{
			Category:  in.Category,
			SourceRef: in.SourceRef,
			Tags:      in.Tags,
		},
	})
	if err != nil {
		return s.failure(ToolSetMetadata, err)
	}
	return textResult(formatMutation(res)), nil, nil
}

func (s *Server) handleAddTags(ctx context.Context, _ *mcp.CallToolRequest, in TagsInput) (*mcp.CallToolResult, any, error) {
	res, err := s.ports.Document.AddTags(ctx, in.request())
	if err != nil {
		return s.failure(ToolAddTags, err)
	}
	return textResult(formatMutation(res)), nil, nil
}

func (s *Server) handleRemoveTags(ctx context.Context, _ *mcp.CallToolRequest, in TagsInput) (*mcp.CallToolResult, any, error) {
	res, err := s.ports.Document.RemoveTags(ctx, in.request())
	if err != nil {
		return s.failure(ToolRemoveTags, err)
	}
	return textResult(formatMutation(res)), nil, nil
}

func (s *Server) handleDelete(ctx context.Context, _ *mcp.CallToolRequest, in DeleteInput) (*mcp.CallToolResult, any, error) {
	out, err := s.ports.Document.Delete(ctx, driving.DeleteRequest{
		Collection: in.Collection,
		Filter:     in.Filter.toFilter(),
	})
	if err != nil {
		return s.failure(ToolDelete, err)
	}
	return textResult(formatOutcome(out)), nil, nil
}

func (in TagsInput) request() driving.TagsRequest {
	return driving.TagsRequest{
		Collection: in.Collection,
		Filter:     in.Filter.toFilter(),
		Tags:       in.Tags,
	}
}

// failure turns caller errors into a tool error result the model can read.
// Backend failures are returned as protocol errors.
func (s *Server) failure(tool string, err error) (*mcp.CallToolResult, any, error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return textResult(noMatchText), nil, nil
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrReadOnlyContent):
		res := textResult(err.Error())
		res.IsError = true
		return res, nil, nil
	}
	s.log.Warnw("tool failed", "tool", tool, "error", err)
	return nil, nil, err
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
