package common

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
)

// Version variables injected at build time via ldflags
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// BuildInfo describes the running binary. It is served by /api/version and
// printed in the startup banner.
type BuildInfo struct {
	Version   string `json:"version"`
	Build     string `json:"build"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

// String formats the build info for logs.
func (b BuildInfo) String() string {
	return "navboard " + b.Version + " (build: " + b.Build + ", commit: " + b.Commit + ")"
}

// CurrentBuild returns the build info. When ldflags left the commit or
// build unset, the toolchain's embedded VCS stamp fills them in.
func CurrentBuild() BuildInfo {
	info := BuildInfo{Version: Version, Build: Build, Commit: GitCommit, GoVersion: runtime.Version()}
	if bi, ok := debug.ReadBuildInfo(); ok {
		applyVCSSettings(&info, bi.Settings)
	}
	return info
}

func applyVCSSettings(info *BuildInfo, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = s.Value
				if len(info.Commit) > 7 {
					info.Commit = info.Commit[:7]
				}
			}
		case "vcs.time":
			if info.Build == "unknown" && s.Value != "" {
				info.Build = s.Value
			}
		}
	}
}

// LoadVersionFromFile reads key: value pairs from a .version file next to the
// binary. File values only fill fields still at their defaults.
func LoadVersionFromFile() {
	exe, err := os.Executable()
	if err != nil {
		return
	}
	loadVersionFile(filepath.Join(filepath.Dir(exe), ".version"))
}

func loadVersionFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	fields := map[string]*string{"version": &Version, "build": &Build, "commit": &GitCommit}
	defaults := map[string]string{"version": "dev", "build": "unknown", "commit": "unknown"}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if dst, known := fields[key]; known && *dst == defaults[key] {
			*dst = strings.TrimSpace(val)
		}
	}
}
