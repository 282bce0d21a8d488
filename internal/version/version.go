package version

// Version is overridden at build time with -ldflags "-X swineotype/internal/version.Version=...".
var Version = "0.4.0-dev"
