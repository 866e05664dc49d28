// The main package for the tika-extractor executable.
package main

import (
	"github.com/JakeFAU/tika-extractor/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
