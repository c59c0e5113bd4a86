package loopkit

// Version is the library version, overridable at build time via
// -ldflags "-X github.com/loopkit/loopkit.Version=...".
var Version = "0.3.0"
