package main

import (
	"github.com/barflysocial/bar-match-relay/cmd"
	"github.com/barflysocial/bar-match-relay/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
