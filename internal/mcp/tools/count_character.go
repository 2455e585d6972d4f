package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// CountCharacterTool counts one character in text and echoes the input back.
type CountCharacterTool struct {
	access AccessChecker
	config ConfigProvider
}

// NewCountCharacterTool constructs the count_character tool.
func NewCountCharacterTool(access AccessChecker, config ConfigProvider) *CountCharacterTool {
	return &CountCharacterTool{access: access, config: config}
}

// Definition returns the metadata describing the tool to MCP clients.
func (t *CountCharacterTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"count_character",
		mcp.WithDescription("Count occurrences of a specific character in the text."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to search.")),
		mcp.WithString("character", mcp.Required(), mcp.Description("Exactly one character to count.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the tool. A character argument that is not exactly one
// code point yields a guidance message rather than an error.
func (t *CountCharacterTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if denied := guard(ctx, t.access); denied != nil {
		return denied, nil
	}

	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	character, err := req.RequireString("character")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	count, ok := CountCharacter(text, character, caseSensitive(ctx, t.config))
	if !ok {
		return mcp.NewToolResultText(CharacterGuidance), nil
	}

	return mcp.NewToolResultText(
		fmt.Sprintf("The character '%s' appears %d times in '%s'", character, count, text)), nil
}

// CountCharactersTool counts substring occurrences of character in text.
type CountCharactersTool struct {
	access AccessChecker
	config ConfigProvider
}

// NewCountCharactersTool constructs the count_characters tool.
func NewCountCharactersTool(access AccessChecker, config ConfigProvider) *CountCharactersTool {
	return &CountCharactersTool{access: access, config: config}
}

// Definition returns the metadata describing the tool to MCP clients.
func (t *CountCharactersTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"count_characters",
		mcp.WithDescription("Count occurrences of a specific character in text"),
		mcp.WithString("text", mcp.Required(), mcp.Description("The text to count characters in")),
		mcp.WithString("character", mcp.Required(), mcp.Description("The character to count")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the tool.
func (t *CountCharactersTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if denied := guard(ctx, t.access); denied != nil {
		return denied, nil
	}

	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	character, err := req.RequireString("character")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if character == "" {
		return mcp.NewToolResultError("character must not be empty"), nil
	}

	count := CountCharacters(text, character, caseSensitive(ctx, t.config))
	return mcp.NewToolResultText(
		fmt.Sprintf("The character \"%s\" appears %d times in the text.", character, count)), nil
}

func caseSensitive(ctx context.Context, config ConfigProvider) bool {
	if config == nil {
		return false
	}

	return config(ctx).CaseSensitive()
}
