//go:build !windows

package core

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// portOwners asks lsof which processes listen on port. Missing lsof or any
// lsof failure yields no owners.
func portOwners(port int) []PortOwner {
	path, err := exec.LookPath("lsof")
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1200*time.Millisecond)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "-nP", "-iTCP:"+strconv.Itoa(port), "-sTCP:LISTEN", "-Fpc").Output()
	if err != nil {
		return nil
	}
	return parseLsofFields(out)
}

// parseLsofFields reads lsof -F output: a "p<pid>" line starts a process and a
// following "c<command>" line names it.
func parseLsofFields(out []byte) []PortOwner {
	var owners []PortOwner
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) < 2 {
			continue
		}
		switch line[0] {
		case 'p':
			pid, err := strconv.Atoi(line[1:])
			if err != nil {
				continue
			}
			owners = append(owners, PortOwner{PID: pid})
		case 'c':
			if n := len(owners); n > 0 && owners[n-1].Name == "" {
				owners[n-1].Name = line[1:]
			}
		}
	}
	return owners
}
