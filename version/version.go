// Package version carries build identification, injected at link time:
//
//	go build -ldflags "-X .../version.version=v1.2.3 -X .../version.commit=abc1234"
package version

//nolint:gochecknoglobals
var (
	name    = "musana"
	version = "dev"
	commit  = "unknown"
)

func Name() string {
	return name
}

func Version() string {
	return version
}

func Commit() string {
	return commit
}
