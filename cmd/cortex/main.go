// Command codeindex indexes a workspace and serves hybrid code search,
// either directly (search, status) or over MCP (serve-mcp) for coding
// assistants.
package main

import "github.com/cortexlabs/codeindex/internal/cli"

func main() {
	cli.Execute()
}
