package aggregates

import (
	"github.com/google/uuid"

	"github.com/yungbote/slotswap-backend/internal/domain/swap"
)

// ScopeOwnership says who opens and closes the coordinator scope around a write.
type ScopeOwnership string

const (
	ScopeOwnedByAggregate ScopeOwnership = "aggregate"
	ScopeOwnedByCaller    ScopeOwnership = "caller"
)

// Actor is the party of a request allowed to drive a transition.
type Actor string

const (
	ActorRequester   Actor = "requester"
	ActorTargetOwner Actor = "target_owner"
)

func (a Actor) label() string {
	if a == ActorTargetOwner {
		return "target owner"
	}
	return string(a)
}

// Transition is one request state change. An empty From creates the request
// and an empty To deletes it.
type Transition struct {
	Op    string
	Actor Actor
	From  swap.RequestStatus
	To    swap.RequestStatus
}

// ActorID is the user of req allowed to drive t.
func (t Transition) ActorID(req *swap.SwapRequest) uuid.UUID {
	if req == nil {
		return uuid.Nil
	}
	if t.Actor == ActorTargetOwner {
		return req.TargetOwnerID
	}
	return req.RequesterID
}

// Forbidden is the message returned when someone else attempts t.
func (t Transition) Forbidden() string {
	return "only the " + t.Actor.label() + " can " + t.Op + " a swap request"
}

// Contract describes the transitions an aggregate performs and who owns the
// scope around them.
type Contract struct {
	Name        string
	Scope       ScopeOwnership
	Transitions []Transition
}

// Aggregate is the common marker for all aggregate contracts.
type Aggregate interface {
	Contract() Contract
}

func (c Contract) OwnsScope() bool {
	return c.Scope == ScopeOwnedByAggregate
}

func (c Contract) Transition(op string) (Transition, bool) {
	for _, t := range c.Transitions {
		if t.Op == op {
			return t, true
		}
	}
	return Transition{}, false
}
