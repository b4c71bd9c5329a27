// cmd/nutrition-log/main.go
package main

import "mcp-nutrition-log/internal/cmd"

func main() {
	cmd.Execute()
}
