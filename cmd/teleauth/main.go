// Package main is the entry point for the teleauth CLI.
package main

import "github.com/nilopro/teleauth/internal/output"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	output.Version = version
	output.Commit = commit
	output.BuildDate = date
	Execute()
}
