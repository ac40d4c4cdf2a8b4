package version

const AppName = "taint-fm"

// Version and Commit are set at build time:
// go build -ldflags "-X github.com/keshon/taint-fm/internal/version.Version=v1.2.0"
var (
	Version = "dev"
	Commit  = "none"
)

func String() string {
	return AppName + " " + Version + " (" + Commit + ")"
}
