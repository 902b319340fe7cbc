// Package preflight gates setup on the host preconditions: root
// privilege, a Debian system, a working apt, and enough free disk. It
// also resolves the invoking (pre-sudo) user, whose absence degrades
// the run rather than stopping it.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
)

// MinFreeBytes is the free-space floor on the root filesystem. Below
// this the toolchain install is known to run out mid-apt.
const MinFreeBytes = 5 << 30

// Probes are the host inspection points. Tests replace individual
// fields; production code uses Defaults.
type Probes struct {
	Euid       func() int
	Getenv     func(key string) string
	LookupUser func(name string) (*user.User, error)
	LookPath   func(file string) (string, error)
	FreeBytes  func(path string) (uint64, error)

	// Root prefixes absolute host paths such as /etc/os-release, so
	// tests can point the inspection at a fixture tree.
	Root string
}

// Defaults returns Probes backed by the real host.
func Defaults() Probes {
	return Probes{
		Euid:       os.Geteuid,
		Getenv:     os.Getenv,
		LookupUser: user.Lookup,
		LookPath:   exec.LookPath,
		FreeBytes:  diskFree,
		Root:       "/",
	}
}

// Report holds everything preflight learned about the host.
type Report struct {
	Euid      int
	OS        Release
	OSErr     error
	AptPath   string
	FreeBytes uint64
	DiskErr   error

	// InvokingUser is the pre-sudo user, nil when it could not be
	// determined. UserReason explains why when nil.
	InvokingUser *user.User
	UserReason   string
}

// Inspect runs every probe and returns the full picture. It never
// stops early; Violations decides what is fatal.
func Inspect(p Probes) *Report {
	r := &Report{Euid: p.Euid()}

	r.OS, r.OSErr = loadRelease(p.Root)

	if path, err := p.LookPath("apt-get"); err == nil {
		r.AptPath = path
	}

	r.FreeBytes, r.DiskErr = p.FreeBytes(p.Root)

	name := p.Getenv("SUDO_USER")
	switch {
	case name == "":
		r.UserReason = "SUDO_USER is not set"
	default:
		u, err := p.LookupUser(name)
		if err != nil {
			r.UserReason = fmt.Sprintf("cannot look up user %s: %v", name, err)
		} else {
			r.InvokingUser = u
		}
	}

	return r
}

// Violations returns the fatal precondition failures in check order.
// An unknown invoking user is not among them; it only degrades the
// per-user steps.
func (r *Report) Violations() []string {
	var v []string

	if r.Euid != 0 {
		v = append(v, fmt.Sprintf("must run as root, re-run with sudo (current euid %d)", r.Euid))
	}

	switch {
	case r.OSErr != nil:
		v = append(v, fmt.Sprintf("cannot read /etc/os-release: %v", r.OSErr))
	case r.OS.ID != "debian":
		v = append(v, fmt.Sprintf("unsupported operating system %q, Debian is required", r.OS.ID))
	}

	if r.AptPath == "" {
		v = append(v, "apt-get not found on PATH")
	}

	switch {
	case r.DiskErr != nil:
		v = append(v, fmt.Sprintf("cannot check free disk space: %v", r.DiskErr))
	case r.FreeBytes < MinFreeBytes:
		v = append(v, fmt.Sprintf("insufficient free disk space: %.1f GiB available, %d GiB required",
			float64(r.FreeBytes)/(1<<30), MinFreeBytes>>30))
	}

	return v
}
