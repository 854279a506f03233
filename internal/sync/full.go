package sync

import "context"

// SyncFull runs SyncIn and, only when it succeeds, SyncOut.
type SyncFull struct {
	in  *SyncIn
	out *SyncOut
}

// NewSyncFull creates a full run.
func NewSyncFull(env *Env, opts Options) *SyncFull {
	return &SyncFull{in: NewSyncIn(env, opts), out: NewSyncOut(env, opts)}
}

// Run performs both directions and returns the combined stats.
func (s *SyncFull) Run(ctx context.Context) *Stats {
	in := s.in.Run(ctx)
	if in.Failed {
		return Combine(in, nil)
	}
	return Combine(in, s.out.Run(ctx))
}

// WaitPings blocks until the outbound pings have finished.
func (s *SyncFull) WaitPings() {
	s.out.WaitPings()
}
