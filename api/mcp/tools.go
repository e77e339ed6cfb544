package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/vecgate/pkg/validate"
)

var (
	addToolName    = "add_vectors"
	addDescription = "Add embeddings to a collection. ids and vectors are paired by position; ids must match \\w+. The collection is created with cosine distance on first use."

	queryToolName    = "query_vectors"
	queryDescription = "Find the return_count nearest embeddings to a vector in a collection. Returns ids with distance scores, nearest first."
)

// AddInput represents the input arguments for the add_vectors tool.
type AddInput struct {
	Collection string      `json:"collection" jsonschema:"collection name, 3-63 characters"`
	IDs        []string    `json:"ids" jsonschema:"entry ids, one per vector"`
	Vectors    [][]float64 `json:"vectors" jsonschema:"embeddings, one per id"`
}

// AddOutput represents the output of the add_vectors tool.
type AddOutput struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
	Chunks     int    `json:"chunks"`
}

// QueryInput represents the input arguments for the query_vectors tool.
type QueryInput struct {
	Collection  string    `json:"collection" jsonschema:"collection name, 3-63 characters"`
	Vector      []float64 `json:"vector" jsonschema:"the query embedding"`
	ReturnCount int       `json:"return_count" jsonschema:"number of results to return"`
}

// QueryOutput represents the output of the query_vectors tool.
type QueryOutput struct {
	Collection string    `json:"collection"`
	IDs        []string  `json:"ids"`
	Scores     []float32 `json:"scores"`
}

// handleAdd validates the input exactly like the HTTP add route and runs it.
func (s *Server) handleAdd(ctx context.Context, _ *mcp.CallToolRequest, input AddInput) (*mcp.CallToolResult, AddOutput, error) {
	payload, err := toPayload(input)
	if err != nil {
		return errorResult(err), AddOutput{}, nil
	}

	req, err := validate.ValidateAdd(payload)
	if err != nil {
		return errorResult(err), AddOutput{}, nil
	}

	s.config.Logger.Debug("MCP add request",
		"collection", req.Collection,
		"count", req.Len(),
	)

	result, err := s.config.Gateway.Add(ctx, req)
	if err != nil {
		s.config.Logger.Error("MCP add failed", "collection", req.Collection, "error", err)
		return errorResult(err), AddOutput{}, nil
	}

	output := AddOutput{
		Collection: req.Collection,
		Count:      result.Count,
		Chunks:     result.Chunks,
	}
	return textResult(output), output, nil
}

// handleQuery validates the input exactly like the HTTP query route and runs it.
func (s *Server) handleQuery(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	payload, err := toPayload(input)
	if err != nil {
		return errorResult(err), QueryOutput{}, nil
	}

	req, err := validate.ValidateQuery(payload)
	if err != nil {
		return errorResult(err), QueryOutput{}, nil
	}

	s.config.Logger.Debug("MCP query request",
		"collection", req.Collection,
		"return_count", req.ReturnCount,
	)

	result, err := s.config.Gateway.Query(ctx, req)
	if err != nil {
		s.config.Logger.Error("MCP query failed", "collection", req.Collection, "error", err)
		return errorResult(err), QueryOutput{}, nil
	}

	output := QueryOutput{
		Collection: req.Collection,
		IDs:        result.IDs,
		Scores:     result.Scores,
	}
	return textResult(output), output, nil
}

func toPayload(input any) (validate.Payload, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encoding arguments: %w", err)
	}
	return validate.DecodePayload(body)
}

// textResult also carries the output as serialized JSON text for clients
// that ignore structured content.
func textResult(output any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Errorf("serializing result: %w", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: err.Error()},
		},
	}
}
