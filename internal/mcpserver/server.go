// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the study session as tools for LLM clients via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/studycards/internal/apperr"
	"github.com/starford/studycards/internal/study"
)

const importFormatURI = "studycards://import-format"

// Server wraps the MCP server with study tools.
type Server struct {
	mcp  *server.MCPServer
	ctrl *study.Controller
}

// New creates a new MCP server with all study tools registered.
func New(ctrl *study.Controller, version string) *Server {
	s := &Server{ctrl: ctrl}

	s.mcp = server.NewMCPServer(
		"studycards",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_sets",
		mcp.WithDescription("List all card sets with their card counts, in library order."),
	), s.listSets)

	s.mcp.AddTool(mcp.NewTool("select_set",
		mcp.WithDescription("Make a set active and start at its first card in canonical order."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Set name as returned by list_sets")),
	), s.selectSet)

	s.mcp.AddTool(mcp.NewTool("current_card",
		mcp.WithDescription("Show the session: active set, position, current card and whether it is flipped or starred."),
	), s.currentCard)

	s.mcp.AddTool(mcp.NewTool("next_card",
		mcp.WithDescription("Move to the next card. Stays on the last card."),
	), s.nextCard)

	s.mcp.AddTool(mcp.NewTool("prev_card",
		mcp.WithDescription("Move to the previous card. Stays on the first card."),
	), s.prevCard)

	s.mcp.AddTool(mcp.NewTool("flip_card",
		mcp.WithDescription("Turn the current card over to show the answer, or back to the question."),
	), s.flipCard)

	s.mcp.AddTool(mcp.NewTool("shuffle_cards",
		mcp.WithDescription("Shuffle the active set and restart at the first card."),
		mcp.WithBoolean("starred_only", mcp.Description("Only study the starred cards of the set")),
	), s.shuffleCards)

	s.mcp.AddTool(mcp.NewTool("toggle_star",
		mcp.WithDescription("Star or unstar the current card."),
	), s.toggleStar)

	s.mcp.AddTool(mcp.NewTool("add_card",
		mcp.WithDescription("Append a card to the end of the active set."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Front of the card")),
		mcp.WithString("answer", mcp.Required(), mcp.Description("Back of the card")),
	), s.addCard)

	s.mcp.AddTool(mcp.NewTool("delete_card",
		mcp.WithDescription("Delete the current card from the active set."),
	), s.deleteCard)

	s.mcp.AddTool(mcp.NewTool("delete_set",
		mcp.WithDescription("Delete a whole set. If it was active, the first remaining set becomes active."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Set name")),
	), s.deleteSet)

	s.mcp.AddTool(mcp.NewTool("import_sets",
		mcp.WithDescription("Import card sets from a JSON document. Read the "+importFormatURI+
			" resource for the format. Sets with the same name are replaced."),
		mcp.WithString("json", mcp.Required(), mcp.Description("Import document")),
	), s.importSets)

	s.mcp.AddTool(mcp.NewTool("import_file",
		mcp.WithDescription("Import a .json, .xlsx or .csv card file from a base64 data: URI or an http(s) URL."),
		mcp.WithString("url", mcp.Required(), mcp.Description("data:<mime>;base64,<data> or http(s) URL")),
		mcp.WithString("filename", mcp.Description("File name; its extension picks the format and a CSV's base name becomes the set name")),
	), s.importFile)

	s.mcp.AddTool(mcp.NewTool("export_sets",
		mcp.WithDescription("Export every set as one pretty-printed JSON document."),
	), s.exportSets)

	s.mcp.AddResource(
		mcp.NewResource(importFormatURI, "Import Format",
			mcp.WithResourceDescription("JSON document shape accepted by import_sets and produced by export_sets."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readImportFormatResource,
	)

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

func toolJSON(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// toolError reports err to the client. Unexpected errors are also logged.
func toolError(err error) *mcp.CallToolResult {
	if !apperr.IsPrecondition(err) && !apperr.IsInvalidInput(err) && !errors.Is(err, apperr.ErrNotFound) {
		slog.Error("mcp tool failed", slog.String("error", err.Error()))
	}
	return mcp.NewToolResultError(apperr.Message(err))
}

func (s *Server) view() *mcp.CallToolResult {
	v, err := s.ctrl.View()
	if err != nil {
		return toolError(err)
	}
	return toolJSON(v)
}

func (s *Server) listSets(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolJSON(s.ctrl.Sets()), nil
}

func (s *Server) selectSet(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ctrl.ChangeSet(name); err != nil {
		return toolError(err), nil
	}
	return s.view(), nil
}

func (s *Server) currentCard(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.view(), nil
}

func (s *Server) nextCard(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.ctrl.Next()
	return s.view(), nil
}

func (s *Server) prevCard(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.ctrl.Prev()
	return s.view(), nil
}

func (s *Server) flipCard(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.ctrl.Flip()
	return s.view(), nil
}

func (s *Server) shuffleCards(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ctrl.Shuffle(req.GetBool("starred_only", false)); err != nil {
		return toolError(err), nil
	}
	return s.view(), nil
}

func (s *Server) toggleStar(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	starred, err := s.ctrl.ToggleCurrentCardStar()
	if err != nil {
		return toolError(err), nil
	}
	if starred {
		return mcp.NewToolResultText("starred"), nil
	}
	return mcp.NewToolResultText("unstarred"), nil
}

func (s *Server) addCard(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := req.RequireString("answer")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	card, err := s.ctrl.AddCard(question, answer)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(card), nil
}

func (s *Server) deleteCard(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := s.ctrl.DeleteCard(); err != nil {
		return toolError(err), nil
	}
	return s.view(), nil
}

func (s *Server) deleteSet(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ctrl.DeleteSet(name); err != nil {
		return toolError(err), nil
	}
	return s.view(), nil
}

func (s *Server) importSets(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("json")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.importText([]byte(text))
}

func (s *Server) importText(text []byte) (*mcp.CallToolResult, error) {
	n, err := s.ctrl.ImportSets(text)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(map[string]any{"imported": n, "sets": s.ctrl.Sets()}), nil
}

func (s *Server) exportSets(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.ctrl.ExportAll()
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readImportFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      importFormatURI,
			MIMEType: "text/markdown",
			Text:     ImportFormatContract,
		},
	}, nil
}
