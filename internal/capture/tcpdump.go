package capture

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/afylking/streamid/internal/segmenter"
)

// TcpdumpSource captures via tcpdump, parsing its "-ttttt -q -n" line
// format: "HH:MM:SS.ssssss IP src.port > dst.port: ... length N".
type TcpdumpSource struct {
	Interface  string
	Filter     string
	TcpdumpBin string
}

// NewTcpdumpSource returns a Source backed by a tcpdump subprocess.
// binPath may be empty to resolve "tcpdump" from PATH.
func NewTcpdumpSource(iface, filter, binPath string) *TcpdumpSource {
	if binPath == "" {
		binPath = "tcpdump"
	}
	return &TcpdumpSource{Interface: iface, Filter: filter, TcpdumpBin: binPath}
}

func (s *TcpdumpSource) Name() string { return "tcpdump" }

func (s *TcpdumpSource) Run(ctx context.Context, emit func(segmenter.Packet)) error {
	args := []string{"-i", s.Interface, "-q", "-n", "-ttttt", "-l", s.Filter}
	cmd := exec.CommandContext(ctx, s.TcpdumpBin, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("capture: tcpdump stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("capture: tcpdump start: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		pkt, ok := parseTcpdumpLine(scanner.Text())
		if ok {
			emit(pkt)
		}
	}

	if err := cmd.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("capture: tcpdump exited: %w", err)
	}
	return ctx.Err()
}

// timestampToSeconds parses tcpdump's "-ttttt" HH:MM:SS.sss wall-clock
// format into a float second count, the same convention timestamp deltas
// throughout the segmenter are expressed in.
func timestampToSeconds(ts string) (float64, error) {
	parts := strings.SplitN(ts, ":", 3)
	if len(parts) != 3 {
		return 0, fmt.Errorf("capture: malformed timestamp %q", ts)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	s, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	return float64(h)*3600 + float64(m)*60 + s, nil
}

// stripPort removes the trailing ".<port>" tcpdump appends to each
// endpoint (e.g. "10.0.0.1.443" -> "10.0.0.1").
func stripPort(hostPort string) string {
	idx := strings.LastIndex(hostPort, ".")
	if idx < 0 {
		return hostPort
	}
	return hostPort[:idx]
}

func parseTcpdumpLine(line string) (segmenter.Packet, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return segmenter.Packet{}, false
	}

	t, err := timestampToSeconds(fields[0])
	if err != nil {
		return segmenter.Packet{}, false
	}

	src := stripPort(fields[2])
	dst := stripPort(strings.TrimSuffix(fields[4], ":"))

	size, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
	if err != nil {
		return segmenter.Packet{}, false
	}

	return segmenter.Packet{
		Flow: segmenter.Flow{Src: src, Dst: dst},
		T:    t,
		Size: size,
	}, true
}
