//go:build linux

package continuous

import (
	"os"
	"strconv"
	"strings"
)

// osWatchLimits reads the kernel's inotify ceilings, following the
// teacher's per-OS daemon_health_* split (cmd/bd/daemon_health_unix.go and
// siblings) for platform-specific introspection.
func osWatchLimits() (maxWatches, maxInstances int64, ok bool) {
	w, wOK := readSysctlFile("/proc/sys/fs/inotify/max_user_watches")
	i, iOK := readSysctlFile("/proc/sys/fs/inotify/max_user_instances")
	return w, i, wOK && iOK
}

func readSysctlFile(path string) (int64, bool) {
	data, err := os.ReadFile(path) // #nosec G304 - fixed kernel sysctl path
	if err != nil {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
