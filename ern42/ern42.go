// Package ern42 is the ERN 4.2 request-construction surface: a thin,
// version-pinned wrapper over ernwire's shared Builder. ERN 4.2 adds
// PartyList and MessageAuditTrail over 3.8.2, but has no Release Profile
// or Deal PreOrderDate (those are 4.3-only); ernwire.Assemble gates all of
// this via ernschema.Supports.
package ern42

import (
	"github.com/ddexkit/erncore/ernwire"
	"github.com/ddexkit/erncore/internal/ernschema"
)

// Namespace is the ERN 4.2 root element namespace.
const Namespace = ernschema.NS42

// Builder constructs an ERN 4.2 NewReleaseMessage.
type Builder = ernwire.Builder

// NewBuilder starts a new ERN 4.2 message with the required header fields.
func NewBuilder(messageID, threadID, senderDPID, senderName string) *Builder {
	return ernwire.NewBuilderFor(ernschema.ERN42, Namespace, messageID, threadID, senderDPID, senderName)
}
