// cmd/scour/main.go
package main

import (
	cmd "github.com/scourlabs/scour/internal/commands"
)

// main starts the scour CLI application by delegating to the cobra root
// command. It does not take any arguments and does not return a value.
func main() {
	cmd.Execute()
}
