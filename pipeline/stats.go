package pipeline

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Stats accumulates running counters for a Pipeline, in the same
// atomic-counter style as a transport's SNMP-like stat block: each field
// is updated with atomic adds from whichever goroutine observes the
// corresponding event, and the whole set can be snapshotted to a row of
// a CSV log on a timer.
type Stats struct {
	Frames              uint64
	MissingFrames       uint64
	FillFrames          uint64
	CorrectedSymbols    uint64
	UncorrectableBlocks uint64
	PacketsExtracted    uint64
	DroppedBytes        uint64
	GroupsComplete      uint64
	GroupsIncomplete    uint64
}

func (s *Stats) recordFrame(missing uint32, fill bool) {
	atomic.AddUint64(&s.Frames, 1)
	if missing > 0 {
		atomic.AddUint64(&s.MissingFrames, 1)
	}
	if fill {
		atomic.AddUint64(&s.FillFrames, 1)
	}
}

func (s *Stats) recordRS(corrected int, uncorrectable bool) {
	if corrected > 0 {
		atomic.AddUint64(&s.CorrectedSymbols, uint64(corrected))
	}
	if uncorrectable {
		atomic.AddUint64(&s.UncorrectableBlocks, 1)
	}
}

func (s *Stats) recordExtraction(dropped bool, numPackets int) {
	if numPackets > 0 {
		atomic.AddUint64(&s.PacketsExtracted, uint64(numPackets))
	}
	if dropped {
		atomic.AddUint64(&s.DroppedBytes, 1)
	}
}

func (s *Stats) recordGroup(complete bool) {
	if complete {
		atomic.AddUint64(&s.GroupsComplete, 1)
	} else {
		atomic.AddUint64(&s.GroupsIncomplete, 1)
	}
}

// Header returns the CSV column names for ToSlice's values, in order.
func (s *Stats) Header() []string {
	return []string{
		"Frames", "MissingFrames", "FillFrames", "CorrectedSymbols",
		"UncorrectableBlocks", "PacketsExtracted", "DroppedBytes",
		"GroupsComplete", "GroupsIncomplete",
	}
}

// ToSlice snapshots the current counters as strings, in Header's order.
func (s *Stats) ToSlice() []string {
	return []string{
		fmt.Sprint(atomic.LoadUint64(&s.Frames)),
		fmt.Sprint(atomic.LoadUint64(&s.MissingFrames)),
		fmt.Sprint(atomic.LoadUint64(&s.FillFrames)),
		fmt.Sprint(atomic.LoadUint64(&s.CorrectedSymbols)),
		fmt.Sprint(atomic.LoadUint64(&s.UncorrectableBlocks)),
		fmt.Sprint(atomic.LoadUint64(&s.PacketsExtracted)),
		fmt.Sprint(atomic.LoadUint64(&s.DroppedBytes)),
		fmt.Sprint(atomic.LoadUint64(&s.GroupsComplete)),
		fmt.Sprint(atomic.LoadUint64(&s.GroupsIncomplete)),
	}
}

// StatsLogger appends a CSV row of stats to path once per interval,
// rotating the filename through time.Format the same way a transport's
// periodic SNMP logger would. It blocks until done is closed.
func StatsLogger(path string, interval time.Duration, stats *Stats, done <-chan struct{}) {
	if path == "" || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			logdir, logfile := filepath.Split(path)
			f, err := os.OpenFile(logdir+now.Format(logfile), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
			if err != nil {
				log.Println(err)
				continue
			}
			w := csv.NewWriter(f)
			if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
				if err := w.Write(append([]string{"Unix"}, stats.Header()...)); err != nil {
					log.Println(err)
				}
			}
			if err := w.Write(append([]string{fmt.Sprint(now.Unix())}, stats.ToSlice()...)); err != nil {
				log.Println(err)
			}
			w.Flush()
			f.Close()
		}
	}
}
