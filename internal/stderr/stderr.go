//go:build !windows

// Package stderr sends file descriptor 2 to the log while the terminal UI
// owns the screen. The audio backend (ALSA through oto) and the C decoders
// write diagnostics straight to fd 2.
package stderr

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"
)

// Capture is an active redirection of fd 2.
type Capture struct {
	orig int
	r, w *os.File
	done chan struct{}
	once sync.Once
}

// Start redirects fd 2 into logger, one warn record per non-empty line.
// Call it before the audio device is opened. On error nothing is
// redirected and output keeps going to the terminal.
func Start(logger *slog.Logger) (*Capture, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	fd := int(os.Stderr.Fd())
	orig, err := syscall.Dup(fd)
	if err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	if err := syscall.Dup2(int(w.Fd()), fd); err != nil {
		syscall.Close(orig)
		r.Close()
		w.Close()
		return nil, err
	}

	c := &Capture{orig: orig, r: r, w: w, done: make(chan struct{})}
	go c.forward(logger)
	return c, nil
}

func (c *Capture) forward(logger *slog.Logger) {
	defer close(c.done)
	sc := bufio.NewScanner(c.r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			logger.Warn("stderr", "line", line)
		}
	}
}

// Stop restores fd 2 and waits until every captured line is logged.
func (c *Capture) Stop() {
	c.once.Do(func() {
		_ = syscall.Dup2(c.orig, int(os.Stderr.Fd()))
		_ = syscall.Close(c.orig)
		c.w.Close()
		<-c.done
		c.r.Close()
	})
}
