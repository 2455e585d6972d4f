// Package prompts declares the prompt templates served over MCP.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CountCharactersName is the registered prompt name.
const CountCharactersName = "count_characters"

// CountCharacters returns the prompt definition and its handler.
func CountCharacters() (mcp.Prompt, server.PromptHandlerFunc) {
	prompt := mcp.NewPrompt(
		CountCharactersName,
		mcp.WithPromptDescription("Count occurrences of a specific character in text"),
		mcp.WithArgument("text",
			mcp.ArgumentDescription("The text to count characters in"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("character",
			mcp.ArgumentDescription("The character to count"),
			mcp.RequiredArgument(),
		),
	)

	return prompt, handleCountCharacters
}

func handleCountCharacters(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	text := req.Params.Arguments["text"]
	character := req.Params.Arguments["character"]

	return mcp.NewGetPromptResult(
		"Count characters in text",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(CountCharactersText(text, character))),
		},
	), nil
}

// CountCharactersText renders the user message of the count_characters prompt.
func CountCharactersText(text, character string) string {
	return fmt.Sprintf("Count how many times the character \"%s\" appears in this text: \"%s\"", character, text)
}
