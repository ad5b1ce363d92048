// Package ernversion implements the Version & Profile Detector (spec
// §4.2): classifying a document from its root element alone, in O(1)
// tokens with respect to document size.
package ernversion

import (
	"context"
	"io"

	"github.com/ddexkit/erncore/ernerr"
	"github.com/ddexkit/erncore/internal/ernschema"
	"github.com/ddexkit/erncore/xmlio"
)

// Detection is the result of inspecting a document's root element.
type Detection struct {
	Version        ernschema.Version
	Profile        string // BusinessProfileVersionId, if present
	ReleaseProfile string // ReleaseProfileVersionId, if present
}

const (
	attrMessageSchemaVersionID = "MessageSchemaVersionId"
	attrBusinessProfileVersionID = "BusinessProfileVersionId"
	attrReleaseProfileVersionID  = "ReleaseProfileVersionId"
)

// Detect reads only up to the first StartElement token and classifies it.
// It never materializes the rest of the document (testable property 5).
func Detect(ctx context.Context, src io.Reader) (Detection, error) {
	r := xmlio.NewReader(ctx, src, quickReaderConfig())
	for {
		tok, err := r.Next()
		if err != nil {
			if err == io.EOF {
				return Detection{}, ernerr.New(ernerr.InvalidXML, "document has no root element")
			}
			return Detection{}, err
		}
		if tok.Kind != xmlio.TokStartElement {
			continue
		}
		return classify(tok)
	}
}

// quickReaderConfig tightens the depth limit to 1, since Detect only ever
// looks at the root start element, and keeps every other default limit,
// including the byte-budget and external-entity defenses.
func quickReaderConfig() xmlio.ReaderConfig {
	cfg := xmlio.DefaultReaderConfig()
	cfg.MaxDepth = 1
	return cfg
}

func classify(tok xmlio.Token) (Detection, error) {
	version, ok := ernschema.VersionForNamespace(tok.Name.Space)
	if !ok {
		return Detection{}, ernerr.New(ernerr.UnsupportedVersion, "unrecognized namespace %q", tok.Name.Space)
	}
	d := Detection{Version: version}
	for _, a := range tok.Attrs {
		switch a.Name.Local {
		case attrBusinessProfileVersionID:
			d.Profile = a.Value
		case attrReleaseProfileVersionID:
			d.ReleaseProfile = a.Value
		case attrMessageSchemaVersionID:
			// Present for cross-checking; namespace URI remains
			// authoritative per spec §4.2.
		}
	}
	return d, nil
}
