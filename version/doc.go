// Package version reports the build of a reactor binary.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/reactor/version.Version=1.0.0 \
//	  -X github.com/kbukum/reactor/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Anything left unset is filled from the VCS stamp the go tool embeds.
package version
