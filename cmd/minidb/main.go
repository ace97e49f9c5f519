// Package main provides the minidb command.
package main

import "github.com/mesh-intelligence/miniaturedb/internal/cli"

func main() {
	cli.Execute()
}
