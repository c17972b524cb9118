// Command ledgerctl inspects and edits a local fintrack snapshot file.
package main

import "fintrack/cmd/ledgerctl/cmd"

func main() {
	cmd.Execute()
}
