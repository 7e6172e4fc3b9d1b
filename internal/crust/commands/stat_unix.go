//go:build unix

package commands

import (
	"os"
	"syscall"
)

// ownership returns the hard link count, owner id and group id of info
func ownership(info os.FileInfo) (links uint64, uid, gid uint32) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok && st != nil {
		return uint64(st.Nlink), st.Uid, st.Gid
	}
	return 1, 0, 0
}
