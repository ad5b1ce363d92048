// Package ern43 is the ERN 4.3 request-construction surface: a thin,
// version-pinned wrapper over ernwire's shared Builder. ERN 4.3 is the
// only family supporting a Release-level Profile element and a Deal
// PreOrderDate; ernwire.Assemble renders both automatically via
// ernschema.Supports.
package ern43

import (
	"github.com/ddexkit/erncore/ernwire"
	"github.com/ddexkit/erncore/internal/ernschema"
)

// Namespace is the ERN 4.3 root element namespace.
const Namespace = ernschema.NS43

// Builder constructs an ERN 4.3 NewReleaseMessage.
type Builder = ernwire.Builder

// NewBuilder starts a new ERN 4.3 message with the required header fields.
func NewBuilder(messageID, threadID, senderDPID, senderName string) *Builder {
	return ernwire.NewBuilderFor(ernschema.ERN43, Namespace, messageID, threadID, senderDPID, senderName)
}
