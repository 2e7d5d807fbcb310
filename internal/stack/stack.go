// Package stack implements the frame interaction stack: an immutable,
// prepend-growing history of frame requests and their outcomes, plus the
// Session state machine that drives button presses through the proxy.
package stack

import (
	"github.com/openframes/framehost/internal/frames"
)

// ItemKind tags a stack entry.
type ItemKind string

const (
	// KindPending marks a request that has been issued but not completed.
	KindPending ItemKind = "pending"
	// KindDone marks a completed request carrying a parsed frame bundle.
	KindDone ItemKind = "done"
	// KindRequestError marks a request that failed at the transport level
	// or returned a server error.
	KindRequestError ItemKind = "requestError"
	// KindMessage marks an informational payload returned instead of a frame.
	KindMessage ItemKind = "message"
)

// Item is one entry of the interaction stack. Timestamp is the item's
// identity: completions locate their pending slot by it, so it must be
// unique within a stack.
type Item struct {
	Kind      ItemKind `json:"kind"`
	Timestamp int64    `json:"timestamp"`
	Method    string   `json:"method"`
	URL       string   `json:"url"`

	// SpeedMs is the measured wall-clock duration, rounded to two decimals.
	// Zero while the item is pending.
	SpeedMs float64 `json:"speedMs,omitempty"`

	// Frame is set for done items.
	Frame *frames.FrameBundle `json:"frame,omitempty"`

	// ResponseStatus and ErrorMessage are set for requestError items.
	ResponseStatus int    `json:"responseStatus,omitempty"`
	ErrorMessage   string `json:"errorMessage,omitempty"`

	// Message is set for message items.
	Message string `json:"message,omitempty"`
}

// Stack is the ordered request history, newest first. All operations are
// copy-on-write; the receiver is never mutated.
type Stack []Item

// Load prepends a pending item.
func (s Stack) Load(item Item) Stack {
	next := make(Stack, 0, len(s)+1)
	next = append(next, item)
	return append(next, s...)
}

// Done replaces the entry matching pending's timestamp with done. If the
// pending item is no longer present (a Clear raced the completion) the
// stack is returned unchanged.
func (s Stack) Done(pending, done Item) Stack {
	return s.replace(pending.Timestamp, done)
}

// RequestError replaces the entry matching pending's timestamp with errItem,
// with the same stale-completion semantics as Done.
func (s Stack) RequestError(pending, errItem Item) Stack {
	return s.replace(pending.Timestamp, errItem)
}

func (s Stack) replace(timestamp int64, item Item) Stack {
	for i := range s {
		if s[i].Timestamp == timestamp {
			next := make(Stack, len(s))
			copy(next, s)
			next[i] = item
			return next
		}
	}
	return s
}

// Remove drops the entry matching item's timestamp, restoring the stack to
// its pre-Load shape. Used when a response turns out not to be a frame at
// all, e.g. a redirect instruction.
func (s Stack) Remove(item Item) Stack {
	for i := range s {
		if s[i].Timestamp == item.Timestamp {
			next := make(Stack, 0, len(s)-1)
			next = append(next, s[:i]...)
			return append(next, s[i+1:]...)
		}
	}
	return s
}

// Clear resets to an empty stack.
func (s Stack) Clear() Stack {
	return Stack{}
}

// ResetInitialFrame replaces the stack head with a synthetic done item
// wrapping frame. The replacement only happens when there is no head yet, or
// the head is a done item wrapping a different frame value; passing the same
// initial frame again is a no-op so unrelated re-renders do not churn the
// stack.
func (s Stack) ResetInitialFrame(frame *frames.FrameBundle, homeURL string, timestamp int64) Stack {
	if len(s) > 0 && s[0].Kind == KindDone && s[0].Frame == frame {
		return s
	}
	head := Item{
		Kind:      KindDone,
		Timestamp: timestamp,
		Method:    "GET",
		URL:       homeURL,
		Frame:     frame,
	}
	if len(s) == 0 {
		return Stack{head}
	}
	next := make(Stack, len(s))
	copy(next, s)
	next[0] = head
	return next
}

// Head returns the newest item, or nil for an empty stack.
func (s Stack) Head() *Item {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}
