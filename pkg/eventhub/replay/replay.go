/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package replay validates and resolves the start/end block options of a
// registration into wire-ready bounds, and enforces the rule that at most
// one listener may hold replay bounds at a time.
package replay

import (
	"fmt"

	ab "github.com/hyperledger/fabric-protos-go/orderer"
	"github.com/op/go-logging"

	"github.com/securekey/fabric-channel-events/pkg/common/errors/status"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/seek"
)

var logger = logging.MustGetLogger("eventhub")

// BoundType discriminates the value held by a Bound
type BoundType int

const (
	// BoundNone indicates that no bound was given
	BoundNone BoundType = iota
	// BoundSpecified is a concrete block number
	BoundSpecified
	// BoundOldest is the first block on the channel
	BoundOldest
	// BoundNewest is the last block on the channel
	BoundNewest
	// BoundLastSeen resolves to the hub's last-seen block number at
	// registration time
	BoundLastSeen
)

// Bound is one end of a replay range
type Bound struct {
	Type   BoundType
	Number uint64
}

// None returns an empty bound
func None() Bound { return Bound{} }

// Specified returns a bound at the given block number
func Specified(number uint64) Bound { return Bound{Type: BoundSpecified, Number: number} }

// Oldest returns a bound at the first block on the channel
func Oldest() Bound { return Bound{Type: BoundOldest} }

// Newest returns a bound at the last block on the channel
func Newest() Bound { return Bound{Type: BoundNewest} }

// LastSeen returns a bound that resolves to the hub's last-seen block number
func LastSeen() Bound { return Bound{Type: BoundLastSeen} }

func (b Bound) String() string {
	switch b.Type {
	case BoundNone:
		return "none"
	case BoundSpecified:
		return fmt.Sprintf("%d", b.Number)
	case BoundOldest:
		return "oldest"
	case BoundNewest:
		return "newest"
	case BoundLastSeen:
		return "last_seen"
	default:
		return "invalid"
	}
}

// SeekPosition maps the bound to a deliver-protocol seek position.
// An empty bound maps to the given default position.
func (b Bound) SeekPosition(def *ab.SeekPosition) *ab.SeekPosition {
	switch b.Type {
	case BoundSpecified:
		return seek.Specified(b.Number)
	case BoundOldest:
		return seek.Oldest()
	case BoundNewest:
		return seek.Newest()
	default:
		return def
	}
}

// Classification is the outcome of planning a pair of bounds
type Classification int

const (
	// ClassNone indicates that neither bound was given
	ClassNone Classification = iota
	// ClassStartOnly indicates that only a starting block was given
	ClassStartOnly
	// ClassEndOnly indicates that only an ending block was given
	ClassEndOnly
	// ClassStartAndEnd indicates that both bounds were given
	ClassStartAndEnd
)

// HasEnd returns true if the classification carries an ending block.
// Listeners bounded by an end block default to auto-disconnect.
func (c Classification) HasEnd() bool {
	return c == ClassEndOnly || c == ClassStartAndEnd
}

// State is the hub state relevant to planning, captured by the caller under
// the hub lock.
type State struct {
	// Connected is true if the hub is connected or connecting
	Connected bool
	// ConnectedWithBounds is true if the hub was connected with its own
	// start/end options
	ConnectedWithBounds bool
	// HasRegistrations is true if any listener is registered
	HasRegistrations bool
	// LastSeen is the last block number received; valid only if BlockSeen
	LastSeen uint64
	// BlockSeen is true once any block has been received
	BlockSeen bool
}

// Plan is a validated, resolved replay range held by a single registration.
type Plan struct {
	Start Bound
	End   Bound
	Class Classification
	// EndIsNewest records that the ending bound was given as "newest"; the
	// replay is then complete on the server's success status rather than at
	// a concrete block number.
	EndIsNewest bool
	// Unregister is the action that removes the owning registration. It is
	// attached by the hub once the registration exists and is invoked when
	// the ending block is seen and the registration has auto-unregister set.
	Unregister func()
	// AutoUnregister and AutoDisconnect mirror the owning registration's
	// unregister/disconnect flags for the end-of-replay check.
	AutoUnregister bool
	AutoDisconnect bool
}

// EndReached returns true if the plan has a concrete ending block and the
// given block number is at or past it.
func (p *Plan) EndReached(blockNum uint64) bool {
	return p.End.Type == BoundSpecified && blockNum >= p.End.Number
}

// Planner owns the hub's replay bounds. It is not safe for concurrent use;
// the hub serializes access.
type Planner struct {
	active *Plan
}

// New returns a new Planner
func New() *Planner {
	return &Planner{}
}

// InStartStopMode returns true once any listener holds replay bounds
func (p *Planner) InStartStopMode() bool {
	return p.active != nil
}

// Active returns the plan of the current start-stop registration, or nil
func (p *Planner) Active() *Plan {
	return p.active
}

// Plan validates the given bounds against the hub state. Bounded plans are
// recorded on the planner, putting the hub into start-stop mode. Unbounded
// plans are returned but not recorded.
func (p *Planner) Plan(start, end Bound, state State) (*Plan, error) {
	if start.Type == BoundNone && end.Type == BoundNone {
		if p.active != nil {
			return nil, status.New(status.ClientStatus, status.ReplayConflict.ToInt32(),
				"only one event registration is allowed when replay bounds are set", nil)
		}
		return &Plan{Class: ClassNone}, nil
	}

	if p.active != nil {
		return nil, status.New(status.ClientStatus, status.ReplayConflict.ToInt32(),
			"a registration with replay bounds already exists", nil)
	}
	if state.Connected {
		return nil, status.New(status.ClientStatus, status.ReplayConflict.ToInt32(),
			"replay bounds must be registered before connecting", nil)
	}
	if state.ConnectedWithBounds {
		return nil, status.New(status.ClientStatus, status.ReplayConflict.ToInt32(),
			"the hub was connected with its own start/end options", nil)
	}
	if state.HasRegistrations {
		return nil, status.New(status.ClientStatus, status.ReplayConflict.ToInt32(),
			"replay bounds may not be combined with existing registrations", nil)
	}

	start = resolveLastSeen(start, state)
	end = resolveLastSeen(end, state)

	if start.Type == BoundSpecified && end.Type == BoundSpecified && start.Number > end.Number {
		return nil, status.New(status.ClientStatus, status.InvalidRange.ToInt32(),
			fmt.Sprintf("starting block %d is greater than ending block %d", start.Number, end.Number), nil)
	}

	plan := &Plan{
		Start:       start,
		End:         end,
		Class:       classify(start, end),
		EndIsNewest: end.Type == BoundNewest,
	}

	logger.Debugf("Replay bounds set: start [%s], end [%s]", start, end)
	p.active = plan
	return plan, nil
}

// Release clears the planner if the given plan is the active one. Called
// when the owning registration is removed.
func (p *Planner) Release(plan *Plan) {
	if p.active == plan {
		p.active = nil
	}
}

// Reset clears the replay bounds. Called on disconnect.
func (p *Planner) Reset() {
	p.active = nil
}

// resolveLastSeen resolves the last_seen sentinel at registration time.
// If no block has been seen yet the bound resolves to newest.
func resolveLastSeen(b Bound, state State) Bound {
	if b.Type != BoundLastSeen {
		return b
	}
	if !state.BlockSeen {
		logger.Debug("No block seen yet. Resolving last_seen bound to newest.")
		return Newest()
	}
	return Specified(state.LastSeen)
}

func classify(start, end Bound) Classification {
	switch {
	case start.Type != BoundNone && end.Type != BoundNone:
		return ClassStartAndEnd
	case start.Type != BoundNone:
		return ClassStartOnly
	case end.Type != BoundNone:
		return ClassEndOnly
	default:
		return ClassNone
	}
}
