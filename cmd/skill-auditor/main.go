package main

import "github.com/awch-D/claude-skill-auditor/internal/cli"

func main() {
	cli.Execute()
}
