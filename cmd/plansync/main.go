// plansync keeps a hand-written plan outline and its generated progress
// documents in sync.
//
// Usage:
//
//	plansync                   # regenerate every artifact
//	plansync validate          # check the outline's structure
//	plansync check             # fail if generated files drifted
//	plansync set 1.2.3 done    # record progress and regenerate
//	plansync serve             # MCP server on stdio
package main

import (
	"os"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
