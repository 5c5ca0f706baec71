package store

import (
	"context"
	"fmt"

	"github.com/roach88/navexpect/internal/ir"
)

// RunState summarizes a recorded run for replay.
type RunState struct {
	Run        Run
	Events     []Event
	LastSeq    int64
	Gaps       int  // missing seq values between 1 and LastSeq
	Corrupted  int  // events whose stored hash does not match their content
	DigestOK   bool // recomputed trace digest equals the stored one
	Replayable bool
}

// GetRunState loads a run and checks its events against their hashes.
// A run is replayable when it finished, has no corrupted events and its
// trace digest matches.
func (s *Store) GetRunState(ctx context.Context, id string) (RunState, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: %w", err)
	}
	events, err := s.ReadEvents(ctx, id)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: %w", err)
	}

	state := RunState{Run: run, Events: events}
	hashes := make([]string, 0, len(events))
	for _, ev := range events {
		hash, err := ir.EventHash(ev.Name, ev.Attributes, ev.Seq)
		if err != nil || hash != ev.Hash {
			state.Corrupted++
		}
		hashes = append(hashes, ev.Hash)
		state.LastSeq = ev.Seq
	}
	state.Gaps = int(state.LastSeq) - len(events)
	state.DigestOK = run.TraceDigest != "" && ir.TraceDigest(hashes) == run.TraceDigest
	state.Replayable = run.Finished && state.Corrupted == 0 && state.DigestOK
	return state, nil
}
