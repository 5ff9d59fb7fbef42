package capture

import (
	"context"
	"fmt"
	"net"
	"sort"
)

// ResolveCDNHosts resolves the known SVT Play CDN hostname patterns to a
// deduplicated, sorted set of IP addresses. The edge pattern
// (ed0..ed9.cdn.svt.se) is always included; fullCDNSearch additionally
// resolves the broader footprint.net and akamaized.net pools, at the cost
// of a much longer startup resolution pass.
func ResolveCDNHosts(ctx context.Context, fullCDNSearch bool) ([]string, error) {
	ips := make(map[string]struct{})

	for n := 0; n <= 9; n++ {
		resolveInto(ctx, ips, fmt.Sprintf("ed%d.cdn.svt.se", n))
	}

	if fullCDNSearch {
		for n := 1; n <= 10; n++ {
			resolveInto(ctx, ips, fmt.Sprintf("svt-vod-%d.secure.footprint.net", n))
		}
		for n := 1; n <= 9; n++ {
			for c := 'a'; c <= 't'; c++ {
				resolveInto(ctx, ips, fmt.Sprintf("svt-vod-%d%c.akamaized.net", n, c))
			}
		}
	}

	if len(ips) == 0 {
		return nil, fmt.Errorf("capture: no CDN hosts resolved")
	}

	out := make([]string, 0, len(ips))
	for ip := range ips {
		out = append(out, ip)
	}
	sort.Strings(out)
	return out, nil
}

// resolveInto looks up host and adds every resulting address to dst.
// Resolution failures are expected for speculative hostname ranges (not
// every ed{n}/svt-vod-{n} slot is provisioned) and are silently skipped.
func resolveInto(ctx context.Context, dst map[string]struct{}, host string) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return
	}
	for _, a := range addrs {
		dst[a.IP.String()] = struct{}{}
	}
}
