package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// UppercaseTool converts text to upper case.
type UppercaseTool struct {
	access AccessChecker
}

// NewUppercaseTool constructs the uppercase tool.
func NewUppercaseTool(access AccessChecker) *UppercaseTool {
	return &UppercaseTool{access: access}
}

// Definition returns the metadata describing the tool to MCP clients.
func (t *UppercaseTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"uppercase",
		mcp.WithDescription("Convert text to uppercase."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to convert.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the tool.
func (t *UppercaseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if denied := guard(ctx, t.access); denied != nil {
		return denied, nil
	}

	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(Uppercase(text)), nil
}

// WordCountTool counts words in text.
type WordCountTool struct {
	access AccessChecker
}

// NewWordCountTool constructs the word_count tool.
func NewWordCountTool(access AccessChecker) *WordCountTool {
	return &WordCountTool{access: access}
}

// Definition returns the metadata describing the tool to MCP clients.
func (t *WordCountTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"word_count",
		mcp.WithDescription("Count the number of words in the text."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to count words in.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the tool.
func (t *WordCountTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if denied := guard(ctx, t.access); denied != nil {
		return denied, nil
	}

	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Word count: %d", WordCount(text))), nil
}

// ReverseTextTool reverses text.
type ReverseTextTool struct {
	access AccessChecker
}

// NewReverseTextTool constructs the reverse_text tool.
func NewReverseTextTool(access AccessChecker) *ReverseTextTool {
	return &ReverseTextTool{access: access}
}

// Definition returns the metadata describing the tool to MCP clients.
func (t *ReverseTextTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"reverse_text",
		mcp.WithDescription("Reverse the given text."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to reverse.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the tool.
func (t *ReverseTextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if denied := guard(ctx, t.access); denied != nil {
		return denied, nil
	}

	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(ReverseText(text)), nil
}
