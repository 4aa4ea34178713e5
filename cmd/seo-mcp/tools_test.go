package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/seo-optimizer/seo-analysis/analyzer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFetcher string

func (f staticFetcher) FetchHTML(context.Context, string) (string, error) {
	return string(f), nil
}

func callTool(t *testing.T, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	svc := analyzer.New(staticFetcher(`<html><head><title>Fetched page</title></head><body><h1>Hi</h1></body></html>`))
	req := mcp.CallToolRequest{}
	req.Params.Name = "analyze_page"
	req.Params.Arguments = args

	res, err := handleAnalyzePage(svc)(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestAnalyzePageHTML(t *testing.T) {
	res := callTool(t, map[string]any{
		"html":     "<html><head><title>Ceramic mugs</title></head><body><p>mugs</p></body></html>",
		"keywords": "mugs, ceramic ,",
		"device":   "mobile",
	})
	assert.False(t, res.IsError)

	var report analyzer.CompleteAnalysisResults
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &report))
	assert.Contains(t, report.Categories, analyzer.CategoryKeywords)
	assert.Nil(t, report.Categories[analyzer.CategoryPerformance])
}

func TestAnalyzePageURL(t *testing.T) {
	res := callTool(t, map[string]any{"url": "https://example.com"})
	assert.False(t, res.IsError)

	var report analyzer.CompleteAnalysisResults
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &report))
	assert.Equal(t, "https://example.com", report.URL)
}

func TestAnalyzePageInvalidInput(t *testing.T) {
	res := callTool(t, map[string]any{})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "required")

	res = callTool(t, map[string]any{"html": "<p>x</p>", "device": "tablet"})
	assert.True(t, res.IsError)
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, splitKeywords(" a, ,b c,"))
	assert.Nil(t, splitKeywords(""))
}
