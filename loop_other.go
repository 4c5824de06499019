//go:build !windows
// +build !windows

package windbg

import "errors"

var errUnsupported = errors.New("windbg only supports windows/amd64 targets")

func (s *Session) Start() error { return errUnsupported }

func (s *Session) Stop() error { return errUnsupported }

func restoreOriginalByte(pid uint32, addr uint64, orig byte) error {
	return errUnsupported
}
