package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"redcapprep/internal/domain"
)

const (
	dictionaryFieldsURI = "redcap://dictionary-fields"
	prefixRulesURI      = "redcap://prefix-rules"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(mcp.NewResource(
		dictionaryFieldsURI,
		"REDCap Data Dictionary Fields",
		mcp.WithMIMEType("application/json"),
	), s.handleDictionaryFieldsResource)

	s.mcp.AddResource(mcp.NewResource(
		prefixRulesURI,
		"Source Filename Prefix Rules",
		mcp.WithMIMEType("application/json"),
	), s.handlePrefixRulesResource)
}

func (s *Server) handleDictionaryFieldsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(dictionaryFieldsURI, domain.DictionaryFields)
}

func (s *Server) handlePrefixRulesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(prefixRulesURI, map[string]any{
		"rules":          s.cfg.PrefixRules,
		"fallbackFormId": s.cfg.FallbackFormID,
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
