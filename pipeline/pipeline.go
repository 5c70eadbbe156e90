// Package pipeline composes the framing-and-packet pipeline end to end:
// synchronizer, optional derandomizer, optional Reed-Solomon stage, frame
// parser, packet extractor, and packet grouper, per spec.md §2's diagram.
// Each stage is wired through the narrow interface its consumer defines,
// the same structural-composition style the frame, rs, and packet
// packages already use internally.
package pipeline

import (
	"io"

	"github.com/bmflynn/ccsds-rs/crc"
	"github.com/bmflynn/ccsds-rs/frame"
	"github.com/bmflynn/ccsds-rs/framesync"
	"github.com/bmflynn/ccsds-rs/group"
	"github.com/bmflynn/ccsds-rs/iosrc"
	"github.com/bmflynn/ccsds-rs/packet"
	"github.com/bmflynn/ccsds-rs/pn"
	"github.com/bmflynn/ccsds-rs/rs"
	"github.com/pkg/errors"
)

// Config configures every stage of the pipeline. Stages the caller leaves
// disabled are skipped entirely, per spec.md's "(opt)" markings on the
// Derandomizer and Reed-Solomon stages.
type Config struct {
	Sync framesync.Config

	Derandomize bool

	ReedSolomon bool
	RS          rs.Config

	Frame frame.Config

	Packet packet.Config

	Group bool

	// Stats, if non-nil, is updated with running counters as records
	// flow through the pipeline. See StatsLogger for periodically
	// persisting it.
	Stats *Stats
}

// blockSource is the plain, unparallel Next() ([]byte, error) contract
// shared by framesync.Stage and the derandomizing wrapper.
type blockSource interface {
	Next() ([]byte, error)
}

// derandomizingSource wraps a blockSource, derandomizing each block before
// handing it onward. It is itself a blockSource, so it composes with
// rs.Stage or with identitySource identically to its upstream.
type derandomizingSource struct {
	upstream blockSource
}

func (d *derandomizingSource) Next() ([]byte, error) {
	block, err := d.upstream.Next()
	if err != nil {
		return nil, err
	}
	return pn.DerandomizeCopy(block), nil
}

// identitySource adapts a plain blockSource into a frame.BlockSource for
// the case where the Reed-Solomon stage is disabled: every block is
// reported Skipped, per spec.md §4.3's detection=false contract.
type identitySource struct {
	upstream blockSource
}

func (s *identitySource) Next() ([]byte, rs.Integrity, error) {
	block, err := s.upstream.Next()
	if err != nil {
		return nil, rs.Integrity{}, err
	}
	return block, rs.Integrity{Kind: rs.Skipped}, nil
}

// statsRSSource observes each decoded block's Integrity as it passes from
// the Reed-Solomon stage (or identitySource) to the frame parser.
type statsRSSource struct {
	upstream frame.BlockSource
	stats    *Stats
}

func (s *statsRSSource) Next() ([]byte, rs.Integrity, error) {
	block, integrity, err := s.upstream.Next()
	if err == nil {
		s.stats.recordRS(integrity.N, integrity.Kind == rs.Uncorrectable)
	}
	return block, integrity, err
}

// statsFrameSource observes each parsed Frame as it passes from the frame
// parser to the packet extractor.
type statsFrameSource struct {
	upstream *frame.Parser
	stats    *Stats
}

func (s *statsFrameSource) Next() (frame.Frame, error) {
	fr, err := s.upstream.Next()
	if err == nil {
		s.stats.recordFrame(fr.Missing, fr.Fill)
	}
	return fr, err
}

// statsResultSource observes each extraction Result as it passes from the
// packet extractor onward.
type statsResultSource struct {
	upstream *packet.Extractor
	stats    *Stats
}

func (s *statsResultSource) Next() (packet.Result, error) {
	res, err := s.upstream.Next()
	if err == nil {
		s.stats.recordExtraction(res.Dropped, len(res.Packets))
	}
	return res, err
}

// resultSource is satisfied by anything producing extraction Results,
// whether or not it is wrapped with Stats observation.
type resultSource interface {
	Next() (packet.Result, error)
}

// Pipeline is the fully composed, lazily pulled decode chain. Call
// NextResult (or NextGroup, if grouping is enabled) to drive it.
type Pipeline struct {
	cfg     Config
	result  resultSource
	grouper *group.Grouper
	rsStage *rs.Stage
}

// New constructs a Pipeline reading raw telemetry bytes from r.
func New(r io.Reader, cfg Config) *Pipeline {
	sync, err := framesync.NewStage(iosrc.New(r), cfg.Sync)
	if err != nil {
		// Config is validated by the caller; a construction-time error
		// here means a programmer error in Config, not a stream error.
		panic(errors.Wrap(err, "pipeline: invalid Config"))
	}

	var bs blockSource = sync
	if cfg.Derandomize {
		bs = &derandomizingSource{upstream: bs}
	}

	var fbs frame.BlockSource
	var rsStage *rs.Stage
	if cfg.ReedSolomon {
		rsStage = rs.NewStage(bs, cfg.RS)
		fbs = rsStage
	} else {
		fbs = &identitySource{upstream: bs}
	}
	if cfg.Stats != nil {
		fbs = &statsRSSource{upstream: fbs, stats: cfg.Stats}
	}

	parser := frame.NewParser(fbs, cfg.Frame)
	var fs packet.FrameSource = parser
	if cfg.Stats != nil {
		fs = &statsFrameSource{upstream: parser, stats: cfg.Stats}
	}

	extractor := packet.NewExtractor(fs, cfg.Packet)
	var rsrc resultSource = extractor
	if cfg.Stats != nil {
		rsrc = &statsResultSource{upstream: extractor, stats: cfg.Stats}
	}

	p := &Pipeline{cfg: cfg, result: rsrc, rsStage: rsStage}
	if cfg.Group {
		p.grouper = group.NewGrouper(group.NewFlattenExtractor(rsrc))
	}
	return p
}

// NextResult returns the next upstream frame's extraction result: zero or
// more packets plus any drop bookkeeping. Use this when packet grouping is
// not needed.
func (p *Pipeline) NextResult() (packet.Result, error) {
	return p.result.Next()
}

// NextGroup returns the next completed packet group. It panics if the
// Pipeline was constructed with Config.Group == false.
func (p *Pipeline) NextGroup() (group.PacketGroup, error) {
	if p.grouper == nil {
		panic("pipeline: NextGroup called without Config.Group")
	}
	pg, err := p.grouper.Next()
	if err == nil && p.cfg.Stats != nil {
		p.cfg.Stats.recordGroup(pg.Complete)
	}
	return pg, err
}

// Close releases the Reed-Solomon worker pool, if one was started. It is a
// no-op when Config.ReedSolomon is false.
func (p *Pipeline) Close() error {
	if p.rsStage == nil {
		return nil
	}
	return p.rsStage.Close()
}

// VerifyTrailer reports whether a frame's trailer bytes form a valid
// CRC-16/CCITT-FALSE FECF over the rest of the frame, for callers whose
// mission convention carries one. It is not applied automatically, since
// spec.md leaves the trailer's contents to the caller's mission knowledge.
func VerifyTrailer(frameBytes []byte) bool {
	return crc.VerifyFECF(frameBytes)
}
