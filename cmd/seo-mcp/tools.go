package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/seo-optimizer/seo-analysis/analyzer"
)

type pageAnalyzer interface {
	Analyze(ctx context.Context, req analyzer.Request) (*analyzer.CompleteAnalysisResults, error)
}

func analyzePageTool() mcp.Tool {
	return mcp.NewTool("analyze_page",
		mcp.WithDescription("Analyze a web page for SEO. Scores meta tags, content, keywords, images, headings, links, performance, mobile, security, social tags and structured data, and returns the full report as JSON."),
		mcp.WithString("url",
			mcp.Description("Absolute http(s) URL of the page to fetch and analyze. Mutually exclusive with html."),
		),
		mcp.WithString("html",
			mcp.Description("Raw HTML to analyze instead of fetching a URL."),
		),
		mcp.WithBoolean("include_performance",
			mcp.Description("Measure loading performance (URL mode only)."),
		),
		mcp.WithString("keywords",
			mcp.Description("Comma separated keywords to check coverage for."),
		),
		mcp.WithString("device",
			mcp.Description("Rendering target assumed by the mobile checks (default: 'desktop')."),
			mcp.Enum(string(analyzer.DeviceDesktop), string(analyzer.DeviceMobile)),
		),
	)
}

func handleAnalyzePage(a pageAnalyzer) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := analyzer.Request{
			URL:  request.GetString("url", ""),
			HTML: request.GetString("html", ""),
			Options: analyzer.AnalysisOptions{
				IncludePerformance: request.GetBool("include_performance", false),
				CustomKeywords:     splitKeywords(request.GetString("keywords", "")),
				Device:             analyzer.Device(request.GetString("device", "")),
			},
		}

		res, err := a.Analyze(ctx, req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode report: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

func splitKeywords(raw string) []string {
	var out []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
