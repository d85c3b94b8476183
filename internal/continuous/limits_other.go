//go:build !linux

package continuous

// osWatchLimits has no portable equivalent of /proc/sys/fs/inotify outside
// Linux; callers treat ok==false as "limit unknown, don't warn."
func osWatchLimits() (maxWatches, maxInstances int64, ok bool) {
	return 0, 0, false
}
