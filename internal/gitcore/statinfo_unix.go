//go:build unix

package gitcore

import (
	"io/fs"
	"syscall"
)

type entryStat struct {
	ctimeSec, ctimeNsec uint32
	mtimeSec, mtimeNsec uint32
	device, inode       uint32
	uid, gid            uint32
}

// statTimes extracts the ctime/mtime/device/inode/uid/gid fields the
// staging index caches, reading the platform Stat_t behind info.Sys().
func statTimes(info fs.FileInfo) entryStat {
	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		mtime := info.ModTime()
		return entryStat{
			mtimeSec:  uint32(mtime.Unix()), //nolint:gosec // truncation accepted, matches on-disk 32-bit field
			mtimeNsec: uint32(mtime.Nanosecond()),
		}
	}
	ctime := sys.Ctim
	mtime := sys.Mtim
	return entryStat{
		ctimeSec:  uint32(ctime.Sec),  //nolint:gosec // truncation accepted, matches on-disk 32-bit field
		ctimeNsec: uint32(ctime.Nsec), //nolint:gosec // truncation accepted, matches on-disk 32-bit field
		mtimeSec:  uint32(mtime.Sec),  //nolint:gosec // truncation accepted, matches on-disk 32-bit field
		mtimeNsec: uint32(mtime.Nsec), //nolint:gosec // truncation accepted, matches on-disk 32-bit field
		device:    uint32(sys.Dev),    //nolint:gosec // truncation accepted, matches on-disk 32-bit field
		inode:     uint32(sys.Ino),    //nolint:gosec // truncation accepted, matches on-disk 32-bit field
		uid:       sys.Uid,
		gid:       sys.Gid,
	}
}
