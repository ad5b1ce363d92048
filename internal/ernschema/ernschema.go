// Package ernschema holds the static, read-only tables that tell the rest
// of erncore how the three supported ERN schema families differ: their
// namespace URIs, their canonical namespace prefixes, and which optional
// fields exist in which version. Nothing in this package depends on an
// input document; it is safe to share across concurrent operations
// without locking.
package ernschema

// Version identifies one of the three ERN schema families erncore
// understands.
type Version string

const (
	ERN382  Version = "3.8.2"
	ERN42   Version = "4.2"
	ERN43   Version = "4.3"
	Unknown Version = ""
)

// Namespace URIs recognized by the Version & Profile Detector (spec §4.2,
// §6.4). These are exact strings; erncore never guesses at a version from
// a prefix or a schemaLocation hint alone.
const (
	NS382 = "http://ddex.net/xml/ern/382"
	NS42  = "http://ddex.net/xml/ern/42"
	NS43  = "http://ddex.net/xml/ern/43"
)

// XsiNamespace is the XML Schema instance namespace used for
// xsi:schemaLocation and xsi:type attributes across all three versions.
const XsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// namespaceVersions maps the recognized root namespace URI to its Version.
// Any URI not present here (e.g. the ERN 4.1 namespace) must classify as
// Unknown per spec §4.2.
var namespaceVersions = map[string]Version{
	NS382: ERN382,
	NS42:  ERN42,
	NS43:  ERN43,
}

// VersionForNamespace returns the Version recognized for a root element
// namespace URI, or (Unknown, false) if the URI isn't one erncore supports.
func VersionForNamespace(uri string) (Version, bool) {
	v, ok := namespaceVersions[uri]
	return v, ok
}

// NamespaceForVersion returns the canonical ERN namespace URI for a
// Version. Panics are never raised; callers pass only Versions obtained
// from this package.
func NamespaceForVersion(v Version) string {
	switch v {
	case ERN382:
		return NS382
	case ERN42:
		return NS42
	case ERN43:
		return NS43
	default:
		return ""
	}
}

// Feature flags fields that exist only in some versions, so ernwire can
// omit them when rendering a version that lacks them.
type Feature int

const (
	// FeatureMessageAuditTrail: MessageHeader.MessageAuditTrail, v4.2+.
	FeatureMessageAuditTrail Feature = iota
	// FeatureReleaseProfile: Release-level Profile element, v4.3 only.
	FeatureReleaseProfile
	// FeaturePreOrderDate: Deal.DealTerms.PreOrderDate, v4.3 only.
	FeaturePreOrderDate
	// FeaturePartyList: top-level PartyList composite, v4.2+.
	FeaturePartyList
)

var featureSupport = map[Feature]map[Version]bool{
	FeatureMessageAuditTrail: {ERN42: true, ERN43: true},
	FeatureReleaseProfile:    {ERN43: true},
	FeaturePreOrderDate:      {ERN43: true},
	FeaturePartyList:         {ERN42: true, ERN43: true},
}

// Supports reports whether a Version has the given Feature.
func Supports(v Version, f Feature) bool {
	return featureSupport[f][v]
}

// CanonicalPrefixOrder is the fixed, globally shared table assigning a
// stable short prefix to each well-known namespace URI (spec §4.5 rule 1,
// §9 "Canonical prefix assignment"). The Canonicalizer declares namespaces
// on the root sorted by URI, not in this table's order. Namespaces
// discovered in the input that aren't in this table are numbered ns1,
// ns2, ... in URI-sorted order.
var CanonicalPrefixOrder = []struct {
	URI    string
	Prefix string
}{
	{NS382, "ern"},
	{NS42, "ern"},
	{NS43, "ern"},
	{XsiNamespace, "xsi"},
	{"http://www.w3.org/2001/XMLSchema", "xs"},
	{"http://ddex.net/xml/spotify", "spotify"},
	{"http://ddex.net/xml/apple", "apple"},
	{"http://ddex.net/xml/youtube", "youtube"},
	{"http://ddex.net/xml/amazon", "amazon"},
}

// FixedPrefix returns the canonical prefix for a well-known namespace URI
// and true, or ("", false) if the URI must receive a numbered ns# prefix.
func FixedPrefix(uri string) (string, bool) {
	for _, e := range CanonicalPrefixOrder {
		if e.URI == uri {
			return e.Prefix, true
		}
	}
	return "", false
}

// MaxDepthDefault, MaxEntityExpansionsDefault, etc. are the Secure XML
// Reader's default security limits (spec §4.1).
const (
	MaxDepthDefault             = 50
	MaxEntityExpansionsDefault  = 1000
	MaxAttributesPerElemDefault = 128
	MaxElementTextBytesDefault  = 10 << 20 // 10 MiB
	MaxBytesDefault             = 256 << 20
	StreamingAutoThreshold      = 8 << 20 // spec §9 auto_threshold
	StreamHighWaterMarkDefault  = 100 << 20
)
