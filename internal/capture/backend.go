package capture

import (
	"fmt"
	"runtime"
)

// Backend selects which subprocess adapter NewSource constructs.
type Backend string

const (
	BackendAuto    Backend = "auto"
	BackendTshark  Backend = "tshark"
	BackendTcpdump Backend = "tcpdump"
)

// NewSource returns a Factory for the requested backend, bound to the
// given interface and BPF filter. binPath overrides the resolved
// executable name; empty uses the backend's default PATH lookup.
// BackendAuto picks tshark on Windows (tcpdump isn't generally available
// there) and tcpdump everywhere else, matching the original tool's
// platform branching.
func NewSource(backend Backend, iface, filter, binPath string) (Factory, error) {
	if backend == BackendAuto || backend == "" {
		if runtime.GOOS == "windows" {
			backend = BackendTshark
		} else {
			backend = BackendTcpdump
		}
	}

	switch backend {
	case BackendTshark:
		return func() Source { return NewTsharkSource(iface, filter, binPath) }, nil
	case BackendTcpdump:
		return func() Source { return NewTcpdumpSource(iface, filter, binPath) }, nil
	default:
		return nil, fmt.Errorf("capture: unknown backend %q", backend)
	}
}
