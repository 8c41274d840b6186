// Package lockfile guards an output catalog against concurrent
// translator runs. Two processes checkpointing the same output would
// interleave backups and race on the canonical rename, so a run takes
// a lock file next to the output for its whole duration.
package lockfile

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
)

// Suffix appended to the output path to form the lock path.
const Suffix = ".lock"

// info is the YAML payload of a lock file.
type info struct {
	PID     int       `yaml:"pid"`
	Started time.Time `yaml:"started"`
}

// RunLock is a held lock; Release removes it.
type RunLock struct {
	path string
}

// Acquire takes the lock for outputPath. A lock held by a live process
// is an error; a lock left behind by a dead process is replaced.
func Acquire(outputPath string) (*RunLock, error) {
	path := outputPath + Suffix

	if data, err := os.ReadFile(path); err == nil {
		var held info
		if yerr := yaml.Unmarshal(data, &held); yerr == nil && processAlive(held.PID) {
			return nil, fmt.Errorf("output %s is locked by running process %d (remove %s if that is wrong)",
				outputPath, held.PID, path)
		}
		// Stale lock from a dead process.
		os.Remove(path)
	}

	data, err := yaml.Marshal(info{PID: os.Getpid(), Started: time.Now()})
	if err != nil {
		return nil, fmt.Errorf("marshaling lock: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return &RunLock{path: path}, nil
}

// Path returns the lock file location.
func (l *RunLock) Path() string { return l.path }

// Release removes the lock file. Safe to call more than once.
func (l *RunLock) Release() {
	if l == nil || l.path == "" {
		return
	}
	os.Remove(l.path)
	l.path = ""
}

// processAlive reports whether pid refers to a live process we can
// signal.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if pid == os.Getpid() {
		return true
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
