// Command dataviewer indexes 2D scene frame logs and serves, inspects, exports and browses
// their frames.
package main

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"

	AppName = "dataviewer"
)

func main() {
	Execute()
}
