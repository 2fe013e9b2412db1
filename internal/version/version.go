package version

// Version information for the generator.
// These variables can be overridden at build time via -ldflags.

var (
	// Version is the semantic version of the generator. It is recorded in
	// every native module and is part of every artifact cache key.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// String returns Version, followed by the short commit when one is known.
func String() string {
	if GitCommit == "" {
		return Version
	}
	commit := GitCommit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return Version + "+" + commit
}
