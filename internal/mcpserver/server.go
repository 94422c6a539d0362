// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the document index and generated artifacts to LLM clients via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/marbeck/vellum/internal/blob"
	"github.com/marbeck/vellum/internal/index"
	"github.com/marbeck/vellum/internal/models"
)

const queryLimit = 50

// Server wraps the MCP server with Vellum tools.
type Server struct {
	mcp   *server.MCPServer
	blobs blob.Provider
	idx   index.Index
}

// New creates a new MCP server with all Vellum tools registered.
func New(blobs blob.Provider, idx index.Index) *Server {
	s := &Server{blobs: blobs, idx: idx}

	s.mcp = server.NewMCPServer(
		"Vellum",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the raw content of a vault document or generated artifact."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. notes/meeting.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("get_metadata",
		mcp.WithDescription("Return the indexed metadata record for a document: title, tags, links, classification, entities."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
	), s.getMetadata)

	s.mcp.AddTool(mcp.NewTool("documents_by_tag",
		mcp.WithDescription("List the paths of documents carrying a tag."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name, without the leading #")),
	), s.documentsByTag)

	s.mcp.AddTool(mcp.NewTool("documents_by_classification",
		mcp.WithDescription("List documents with a classification label (meeting, idea, reference, journal, project), most recently modified first."),
		mcp.WithString("label", mcp.Required(), mcp.Description("Classification label")),
	), s.documentsByClassification)

	s.mcp.AddTool(mcp.NewTool("entity_mentions",
		mcp.WithDescription("List the documents mentioning a named entity. Entity names are case-insensitive."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Entity type: person, organization, concept, or location")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Entity name")),
	), s.entityMentions)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.blobs.Get(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if content == nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(content)), nil
}

func (s *Server) getMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.idx.GetDocument(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if doc == nil {
		return mcp.NewToolResultError(fmt.Sprintf("not indexed: %s", path)), nil
	}
	out, _ := json.MarshalIndent(doc, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) documentsByTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths, err := s.idx.ByTag(tag, queryLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(paths, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) documentsByClassification(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	label := models.Classification(raw)
	if !label.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown classification: %s", raw)), nil
	}
	docs, err := s.idx.ByClassification(label, queryLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(docs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) entityMentions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ := models.EntityType(rawType)
	if !typ.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown entity type: %s", rawType)), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths, err := s.idx.EntityMentions(typ, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(paths, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
