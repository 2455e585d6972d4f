package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// GreetTool greets a caller by name. It needs no configuration.
type GreetTool struct{}

// NewGreetTool constructs the greet tool.
func NewGreetTool() *GreetTool {
	return &GreetTool{}
}

// Definition returns the metadata describing the tool to MCP clients.
func (t *GreetTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"greet",
		mcp.WithDescription("Greet someone by name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the person to greet.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the tool.
func (t *GreetTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(Greet(name)), nil
}

// AddTool sums two numbers.
type AddTool struct{}

// NewAddTool constructs the add tool.
func NewAddTool() *AddTool {
	return &AddTool{}
}

// Definition returns the metadata describing the tool to MCP clients.
func (t *AddTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"add",
		mcp.WithDescription("Add two numbers together."),
		mcp.WithNumber("a", mcp.Required(), mcp.Description("First number.")),
		mcp.WithNumber("b", mcp.Required(), mcp.Description("Second number.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the tool.
func (t *AddTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := req.RequireFloat("a")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := req.RequireFloat("b")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatNumber(Add(a, b))), nil
}
