package rpcconn

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/msgctl/netaidkit-nakd/internal/jsonrpc"
)

// resolveAccess reads the connecting peer's credentials via SO_PEERCRED and
// maps UID 0 to root access, everything else to user access. This decides
// Open Question "access level resolution" from the daemon's design notes:
// the socket is world-writable, so any local user can connect, and the
// peer's UID is what splits root/user privilege without a second
// authentication channel.
func resolveAccess(conn *net.UnixConn) (jsonrpc.AccessLevel, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return jsonrpc.AccessUser, fmt.Errorf("syscall conn: %w", err)
	}

	var cred *unix.Ucred
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		cred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return jsonrpc.AccessUser, fmt.Errorf("control: %w", err)
	}
	if sockErr != nil {
		return jsonrpc.AccessUser, fmt.Errorf("getsockopt SO_PEERCRED: %w", sockErr)
	}

	if cred.Uid == 0 {
		return jsonrpc.AccessRoot, nil
	}
	return jsonrpc.AccessUser, nil
}
