package version

// Version is the current version of the relay.
// This value can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/barflysocial/bar-match-relay/internal/version.Version=v1.0.0'"
var Version = "dev"

// Commit is the git commit the binary was built from, set the same way.
var Commit = "unknown"
