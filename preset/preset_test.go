package preset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddexkit/erncore/graph"
	"github.com/ddexkit/erncore/internal/ernschema"
	"github.com/ddexkit/erncore/preset"
)

func leaf(local, text string) *graph.Node {
	n := graph.NewElem(ernschema.NS43, local)
	n.AppendText(text)
	return n
}

func audioAlbumRelease() *graph.Node {
	rel := graph.NewElem(ernschema.NS43, "Release")
	rel.AppendElem(leaf("DisplayTitleText", "Album Title"))
	group := graph.NewElem(ernschema.NS43, "ResourceGroup")
	item := graph.NewElem(ernschema.NS43, "ResourceGroupContentItem")
	item.AppendElem(leaf("ReleaseResourceReference", "A1"))
	group.AppendElem(item)
	rel.AppendElem(group)
	return rel
}

func TestApplyToRelease_RequiredFieldsPresent(t *testing.T) {
	rel := audioAlbumRelease()
	p, ok := preset.Builtin().Get("audio_album")
	require.True(t, ok)

	res := preset.ApplyToRelease(rel, p)
	assert.True(t, res.OK(), "violations: %v", res.Violations)
	assert.NotEmpty(t, res.Warnings, "Genre is recommended and absent")
}

func TestApplyToRelease_FillsAbsentDefault(t *testing.T) {
	rel := audioAlbumRelease()
	p, _ := preset.Builtin().Get("audio_album")

	preset.ApplyToRelease(rel, p)
	rt := rel.FirstElement("ReleaseType")
	require.NotNil(t, rt)
	assert.Equal(t, "Album", rt.Text())
}

func TestApplyToRelease_ApplyingTwiceIsIdempotent(t *testing.T) {
	rel := audioAlbumRelease()
	p, _ := preset.Builtin().Get("audio_album")

	first := preset.ApplyToRelease(rel, p)
	second := preset.ApplyToRelease(rel, p)

	assert.Equal(t, len(first.Violations), len(second.Violations))
	assert.Equal(t, len(first.Warnings), len(second.Warnings))
	assert.Len(t, rel.Elements("ReleaseType"), 1, "second apply must not duplicate the default")
}

func TestApplyToRelease_MissingRequiredFieldIsViolation(t *testing.T) {
	rel := graph.NewElem(ernschema.NS43, "Release")
	rel.AppendElem(leaf("DisplayTitleText", "Album Title"))
	// ResourceGroup chain deliberately absent.

	p, _ := preset.Builtin().Get("audio_album")
	res := preset.ApplyToRelease(rel, p)
	require.False(t, res.OK())
	assert.Len(t, res.Violations, 1)
}

func TestApplyToRelease_EnumViolationIsReportedNotMutated(t *testing.T) {
	rel := graph.NewElem(ernschema.NS43, "Release")
	rel.AppendElem(leaf("DisplayTitleText", "Song"))

	artist := graph.NewElem(ernschema.NS43, "DisplayArtist")
	name := graph.NewElem(ernschema.NS43, "PartyName")
	name.AppendElem(leaf("FullName", "Jane Roe"))
	artist.AppendElem(name)
	rel.AppendElem(artist)

	resID := graph.NewElem(ernschema.NS43, "ResourceId")
	resID.AppendElem(leaf("ISRC", "US1234567890"))
	rel.AppendElem(resID)

	rel.AppendElem(leaf("UseType", "Download")) // not in spotify's allowed enum

	p, _ := preset.Builtin().Get("spotify")
	res := preset.ApplyToRelease(rel, p)
	require.False(t, res.OK())
	assert.Contains(t, res.Violations[0].Error(), "UseType")

	// Enum checks are read-only: the offending value survives unchanged.
	use := rel.FirstElement("UseType")
	require.NotNil(t, use)
	assert.Equal(t, "Download", use.Text())
}

func TestBuiltin_HasAllSevenPresets(t *testing.T) {
	names := preset.Builtin().Names()
	for _, want := range []string{"spotify", "apple_music", "youtube_music", "amazon_music", "universal", "audio_album", "youtube_single"} {
		assert.Contains(t, names, want)
	}
}

func TestLoadOverrides_MergesWithoutMutatingBuiltin(t *testing.T) {
	override := []byte(`
presets:
  - name: universal
    target_version: "3.8.2"
    required: []
    recommended: []
    enums: {}
    defaults: {}
    allowed_extension_namespaces: []
`)
	merged, err := preset.LoadOverrides(override)
	require.NoError(t, err)

	p, ok := merged.Get("universal")
	require.True(t, ok)
	assert.Empty(t, p.Required)

	original, ok := preset.Builtin().Get("universal")
	require.True(t, ok)
	assert.NotEmpty(t, original.Required, "built-in registry must be untouched by LoadOverrides")
}
