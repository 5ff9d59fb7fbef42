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

// TsharkSource captures via tshark, reading tab-separated field output
// (frame.time_relative, ip.src, ip.dst, tcp.len) with -Tfields.
type TsharkSource struct {
	Interface string
	Filter    string
	TsharkBin string
}

// NewTsharkSource returns a Source backed by a tshark subprocess. binPath
// may be empty to resolve "tshark" from PATH.
func NewTsharkSource(iface, filter, binPath string) *TsharkSource {
	if binPath == "" {
		binPath = "tshark"
	}
	return &TsharkSource{Interface: iface, Filter: filter, TsharkBin: binPath}
}

func (s *TsharkSource) Name() string { return "tshark" }

func (s *TsharkSource) Run(ctx context.Context, emit func(segmenter.Packet)) error {
	args := []string{
		"-i", s.Interface,
		"-f", s.Filter,
		"-n",
		"-l",
		"-Tfields",
		"-eframe.time_relative",
		"-eip.src",
		"-eip.dst",
		"-etcp.len",
	}
	cmd := exec.CommandContext(ctx, s.TsharkBin, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("capture: tshark stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("capture: tshark start: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		pkt, ok := parseTsharkLine(scanner.Text())
		if ok {
			emit(pkt)
		}
	}

	if err := cmd.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("capture: tshark exited: %w", err)
	}
	return ctx.Err()
}

func parseTsharkLine(line string) (segmenter.Packet, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 4 {
		return segmenter.Packet{}, false
	}

	t, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return segmenter.Packet{}, false
	}
	size, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return segmenter.Packet{}, false
	}

	return segmenter.Packet{
		Flow: segmenter.Flow{Src: fields[1], Dst: fields[2]},
		T:    t,
		Size: size,
	}, true
}
