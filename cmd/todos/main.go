// Package main provides the todos CLI.
package main

import "github.com/mesh-intelligence/todos/internal/cli"

func main() {
	cli.Execute()
}
