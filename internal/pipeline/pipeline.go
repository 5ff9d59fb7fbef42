// Package pipeline wires the capture, segmenter, and identifier stages
// into a single ingest loop and fans resulting events out to the
// configured sinks.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/afylking/streamid/internal/capture"
	"github.com/afylking/streamid/internal/identifier"
	"github.com/afylking/streamid/internal/observability"
	"github.com/afylking/streamid/internal/segmenter"
	"github.com/afylking/streamid/internal/sink"
)

// Sinks is the set of optional destinations an identification event is
// published to. Any field may be nil to disable that destination.
type Sinks struct {
	Broadcaster *sink.Broadcaster
	HTTP        *sink.HTTPSink
	CLI         *sink.CLIRenderer
}

// Pipeline owns one packet source and drives it through the segmenter and
// identifier on a single goroutine, matching the ordering guarantee that
// packets for a flow are processed strictly in capture order.
type Pipeline struct {
	source    capture.Factory
	segmenter *segmenter.Segmenter
	ident     *identifier.Identifier
	sinks     Sinks
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New constructs a Pipeline from its stages. metrics may be nil to
// disable metric recording.
func New(source capture.Factory, seg *segmenter.Segmenter, ident *identifier.Identifier, sinks Sinks, metrics *observability.Metrics, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{source: source, segmenter: seg, ident: ident, sinks: sinks, metrics: metrics, logger: logger}
}

// ActiveFlows reports the number of flows currently tracked by the
// segmenter, satisfying handlers.PipelineStatus.
func (p *Pipeline) ActiveFlows() int {
	return p.segmenter.ActiveFlows()
}

// IndexLoaded reports whether the identifier has a usable fingerprint
// index, satisfying handlers.PipelineStatus.
func (p *Pipeline) IndexLoaded() bool {
	return p.ident != nil
}

// Run drives packets from the capture source until ctx is cancelled or the
// source exhausts its restart budget.
func (p *Pipeline) Run(ctx context.Context) error {
	return capture.WithRestart(ctx, p.source, func(pkt segmenter.Packet) {
		p.handlePacket(pkt)
	})
}

func (p *Pipeline) handlePacket(pkt segmenter.Packet) {
	if p.metrics != nil {
		p.metrics.PacketsRead.Inc()
	}

	seg, ok := p.segmenter.Ingest(pkt)
	if p.metrics != nil {
		p.metrics.ActiveFlows.Set(float64(p.segmenter.ActiveFlows()))
	}
	if !ok {
		return
	}
	if p.metrics != nil {
		p.metrics.SegmentsEmitted.Inc()
	}

	wasIdentified := p.ident.State(seg.Flow) == identifier.StateIdentified
	ev, ok := p.ident.Ingest(seg)
	if !ok {
		return
	}

	if p.metrics != nil && ev.State == identifier.StateIdentified && !wasIdentified {
		p.metrics.IdentificationsMade.Inc()
	}

	p.publish(ev)
}

func (p *Pipeline) publish(ev identifier.Event) {
	out := toSinkEvent(ev)

	if p.sinks.Broadcaster != nil {
		p.sinks.Broadcaster.Publish(out)
	}
	if p.sinks.CLI != nil {
		p.sinks.CLI.Render(out)
	}
	if p.sinks.HTTP != nil && ev.Best != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.sinks.HTTP.Send(ctx, out); err != nil {
			p.logger.Warn("webhook delivery failed", slog.String("error", err.Error()))
		}
	}
}

func toSinkEvent(ev identifier.Event) sink.Event {
	out := sink.Event{
		Src:          ev.Flow.Src,
		Dst:          ev.Flow.Dst,
		CapturedSize: ev.CapturedSize,
		Elapsed:      ev.Elapsed,
		State:        ev.State.String(),
		At:           time.Now(),
		Best:         toSinkMatch(ev.Best),
		SecondBest:   toSinkMatch(ev.SecondBest),
		ThirdBest:    toSinkMatch(ev.ThirdBest),
	}
	return out
}

func toSinkMatch(m *identifier.MatchInfo) *sink.Match {
	if m == nil {
		return nil
	}
	return &sink.Match{Title: m.Title, Probability: m.Probability, Position: m.Position}
}
