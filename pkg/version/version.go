package version

// Version is the current taxa release.
// Overridden at build time via:
//
//	go build -ldflags "-X github.com/vanderheijden86/taxa/pkg/version.Version=v1.2.3"
var Version = "v0.4.0"
