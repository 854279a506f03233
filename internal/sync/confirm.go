package sync

import "context"

// Decision is the user's answer to a confirmation request.
type Decision int

const (
	// Accepted applies the confirmed subsets.
	Accepted Decision = iota
	// Cancelled applies nothing structural.
	Cancelled
)

// String returns the string representation of the decision.
func (d Decision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Confirmation carries the user's decision and, when accepted, the
// additions the user kept.
type Confirmation struct {
	Decision     Decision
	ReadingLists []ReadingListAddition
	Feeds        []FeedAddition
}

// Confirmer asks the user which additions to apply. It is only consulted
// when there is something to add.
type Confirmer interface {
	Confirm(ctx context.Context, lists []ReadingListAddition, feeds []FeedAddition) (Confirmation, error)
}

// AcceptAll confirms every candidate without asking.
type AcceptAll struct{}

// Confirm implements Confirmer.
func (AcceptAll) Confirm(_ context.Context, lists []ReadingListAddition, feeds []FeedAddition) (Confirmation, error) {
	return Confirmation{Decision: Accepted, ReadingLists: lists, Feeds: feeds}, nil
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, lists []ReadingListAddition, feeds []FeedAddition) (Confirmation, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, lists []ReadingListAddition, feeds []FeedAddition) (Confirmation, error) {
	return f(ctx, lists, feeds)
}
