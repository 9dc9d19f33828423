// Command picker is the terminal surface: manage snippets and paste them
// into the previously focused app.
package main

import (
	"fmt"
	"os"

	"github.com/sakif/snippet-picker/internal/commands"
)

func main() {
	if err := commands.New(commands.Options{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
