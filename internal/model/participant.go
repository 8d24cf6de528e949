package model

import (
	"fmt"

	"github.com/google/uuid"
)

// ParticipantKind discriminates the attendance participant union.
type ParticipantKind string

const (
	ParticipantMember  ParticipantKind = "member"
	ParticipantVisitor ParticipantKind = "visitor"
)

// Participant identifies exactly one of a lodge member or a visitor on an
// attendance row. The two-nullable-columns shape of the storage layer never
// leaks past the repository: constructing a Participant requires choosing
// a side, which makes the "both" and "neither" cases unrepresentable.
type Participant struct {
	Kind ParticipantKind `json:"kind"`
	ID   uuid.UUID       `json:"id"`
}

func MemberParticipant(id uuid.UUID) Participant {
	return Participant{Kind: ParticipantMember, ID: id}
}

func VisitorParticipant(id uuid.UUID) Participant {
	return Participant{Kind: ParticipantVisitor, ID: id}
}

func (p Participant) IsMember() bool  { return p.Kind == ParticipantMember }
func (p Participant) IsVisitor() bool { return p.Kind == ParticipantVisitor }

func (p Participant) String() string {
	return fmt.Sprintf("%s:%s", p.Kind, p.ID)
}

// NewParticipant builds the union from the two optional ids of a request
// body or a database row. Exactly one must be set.
func NewParticipant(memberID, visitorID *uuid.UUID) (Participant, error) {
	switch {
	case memberID != nil && visitorID != nil:
		return Participant{}, fmt.Errorf("exactly one of member id or visitor id must be given, got both")
	case memberID != nil:
		return MemberParticipant(*memberID), nil
	case visitorID != nil:
		return VisitorParticipant(*visitorID), nil
	default:
		return Participant{}, fmt.Errorf("exactly one of member id or visitor id must be given, got neither")
	}
}
