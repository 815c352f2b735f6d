//go:build !unix

package gitcore

import "io/fs"

type entryStat struct {
	ctimeSec, ctimeNsec uint32
	mtimeSec, mtimeNsec uint32
	device, inode       uint32
	uid, gid            uint32
}

// statTimes falls back to ModTime for both ctime and mtime on platforms
// without a POSIX Stat_t (e.g. Windows); device/inode/uid/gid stay zero.
func statTimes(info fs.FileInfo) entryStat {
	mtime := info.ModTime()
	sec := uint32(mtime.Unix()) //nolint:gosec // truncation accepted, matches on-disk 32-bit field
	nsec := uint32(mtime.Nanosecond())
	return entryStat{ctimeSec: sec, ctimeNsec: nsec, mtimeSec: sec, mtimeNsec: nsec}
}
