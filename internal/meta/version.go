package meta

import (
	"fmt"
	"runtime"
	"strings"
)

// Info is the build information of a relay binary, stamped in by the
// linker:
//
//	go build -ldflags "-X github.com/luma/relay/internal/meta.Version=v1.2.0"
type Info struct {
	Version   string
	Build     string
	Branch    string
	BuildTime string
	Platform  string
	GoVersion string
	GoTag     string
}

var (
	Version string

	// Build is the git sha
	Build string

	Branch string

	// BuildTimeUTC as year/month/day hour:min:sec
	BuildTimeUTC string

	// GoTag lists the build tags, comma separated
	GoTag string

	platform = fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)
)

func GetInfo() Info {
	return Info{
		GoVersion: runtime.Version(),
		Version:   orUnknown(Version),
		Build:     orUnknown(Build),
		Branch:    orUnknown(Branch),
		BuildTime: orUnknown(BuildTimeUTC),
		GoTag:     GoTag,
		Platform:  platform,
	}
}

// String renders the one line `relay version` prints.
func (i Info) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "relay %s (%s@%s) built %s with %s on %s",
		i.Version, i.Branch, i.Build, i.BuildTime, i.GoVersion, i.Platform)

	if i.GoTag != "" {
		fmt.Fprintf(&b, " tags %s", i.GoTag)
	}

	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}

	return s
}
