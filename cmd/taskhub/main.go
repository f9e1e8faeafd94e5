// Package main is the entry point for the taskhub CLI.
package main

import "github.com/taskhub/taskhub-cli/internal/cli"

func main() {
	cli.Execute()
}
