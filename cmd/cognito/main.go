// Command cognito runs the multi-agent reasoning workflow from a terminal, over
// HTTP or as an MCP server.
package main

func main() {
	Execute()
}
