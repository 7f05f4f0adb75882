// Package main implements the lexi command: the vocabulary trainer's HTTP
// API server and the maintenance tasks that run against the same database.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
