package main

import "github.com/smithery-ai/smithery-cookbook/cmd"

func main() {
	cmd.Execute()
}
