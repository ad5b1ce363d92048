// Package ern382 is the ERN 3.8.2 request-construction surface: a thin,
// version-pinned wrapper over ernwire's shared Builder. ERN 3.8.2 has no
// PartyList, no MessageAuditTrail, no Release Profile, and no Deal
// PreOrderDate; ernwire.Assemble omits all four automatically via
// ernschema.Supports, so this package only needs to fix Version and the
// namespace.
package ern382

import (
	"github.com/ddexkit/erncore/ernwire"
	"github.com/ddexkit/erncore/internal/ernschema"
)

// Namespace is the ERN 3.8.2 root element namespace.
const Namespace = ernschema.NS382

// Builder constructs an ERN 3.8.2 NewReleaseMessage.
type Builder = ernwire.Builder

// NewBuilder starts a new ERN 3.8.2 message with the required header
// fields (spec §6.3 Builder.new, Builder.set_version pinned to 3.8.2).
func NewBuilder(messageID, threadID, senderDPID, senderName string) *Builder {
	b := ernwire.NewBuilderFor(ernschema.ERN382, Namespace, messageID, threadID, senderDPID, senderName)
	return b
}
