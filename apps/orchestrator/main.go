package main

import "github.com/railzwaylabs/tier-orchestrator/internal/cli"

func main() {
	cli.Execute()
}
