// FILE: lixenwraith/profile/cmd/profctl/main.go
package main

import (
	"os"
)

var version = "dev" // Overridden by ldflags

func main() {
	if err := NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
