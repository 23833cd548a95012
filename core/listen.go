package core

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// PortOwner is a process found listening on a port.
type PortOwner struct {
	PID  int
	Name string
}

func (o PortOwner) String() string {
	if o.Name == "" {
		return fmt.Sprintf("pid %d", o.PID)
	}
	return fmt.Sprintf("pid %d (%s)", o.PID, o.Name)
}

// PortInUseError reports a listen address that is already taken, with the
// processes holding it when they could be identified.
type PortInUseError struct {
	Addr   string
	Owners []PortOwner
	Err    error
}

func (e *PortInUseError) Error() string {
	msg := fmt.Sprintf("address %s is already in use", e.Addr)
	if len(e.Owners) == 0 {
		return msg
	}
	owners := make([]string, len(e.Owners))
	for i, o := range e.Owners {
		owners[i] = o.String()
	}
	return msg + " by " + strings.Join(owners, ", ")
}

func (e *PortInUseError) Unwrap() error {
	return e.Err
}

// Listen opens a TCP listener on addr. When the port is taken the error is a
// *PortInUseError naming the current owner where the platform allows.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err == nil {
		return ln, nil
	}
	if !isAddrInUse(err) {
		return nil, err
	}

	var owners []PortOwner
	if _, portStr, splitErr := net.SplitHostPort(addr); splitErr == nil {
		if port, convErr := strconv.Atoi(portStr); convErr == nil {
			owners = portOwners(port)
		}
	}
	return nil, &PortInUseError{Addr: addr, Owners: owners, Err: err}
}
