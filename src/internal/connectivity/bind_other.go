//go:build unix && !linux

package connectivity

import "golang.org/x/sys/unix"

func bindToDevice(int, string) error {
	return unix.ENOPROTOOPT
}
