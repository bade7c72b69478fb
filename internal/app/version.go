package app

// version is set at build time via -ldflags "-X ...app.version=".
var version = "dev"

// BuildVersion returns the application version string.
func BuildVersion() string {
	return version
}
