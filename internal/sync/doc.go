// Package sync reconciles the local guide/feed hierarchy with the remote
// service snapshot.
//
// # Directions
//
// A synchronisation runs in one of three directions:
//   - In: fetch the remote snapshot, compute a change-set, confirm additions
//     with the user and apply the result to the local hierarchy
//   - Out: push the local hierarchy, remember the sync hashes that were sent
//     and ping published guides
//   - Full: In followed by Out, where Out only runs when In succeeded
//
// Every direction reports its outcome as *Stats. Failures never escape as
// errors:
//
//	stats := sync.NewSyncIn(env, opts).Run(ctx)
//	if stats.Failed {
//	    fmt.Println(stats.Message)
//	}
//
// # Change-sets
//
// Evaluate compares the two hierarchies and returns a *Changes value that
// Apply consumes once. Guides are matched by exact title; feeds by
// match.AreSame with the remote feed as pattern.
//
//	changes, err := sync.Evaluate(ctx, local, remote, sync.EvaluateOptions{
//	    Mode:       sync.ModeMerge,
//	    Tombstones: repo,
//	})
//
// # Modes
//
//   - ModeMerge: respect tombstones and only remove items that were synced
//     out before
//   - ModeRestore: mirror the service exactly, ignoring tombstones and
//     timestamps
package sync
