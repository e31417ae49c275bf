// Command busctl loads rack layouts and runs them.
package main

import "github.com/sparkette/dmabus/cmd/busctl/cmd"

func main() {
	cmd.Execute()
}
