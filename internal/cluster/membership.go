package cluster

import "modelmesh/internal/protocol"

// MembershipEventKind discriminates NewMember/MemberLeft notifications.
type MembershipEventKind string

const (
	EventNewMember  MembershipEventKind = "NEW_MEMBER"
	EventMemberLeft MembershipEventKind = "MEMBER_LEFT"
)

// MembershipEvent is emitted by Server whenever a peer connects (after
// sending its JOIN frame) or disconnects.
type MembershipEvent struct {
	Kind     MembershipEventKind
	PeerID   string
	Metadata protocol.ActorMetadata // the peer's JOIN metadata, for both kinds
}
