package roundtrip_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddexkit/erncore/canon"
	"github.com/ddexkit/erncore/graph"
	"github.com/ddexkit/erncore/roundtrip"
)

const cleanRelease = `<NewReleaseMessage xmlns="http://ddex.net/xml/ern/43">
  <MessageHeader><MessageThreadId>t</MessageThreadId><MessageId>m</MessageId></MessageHeader>
  <ReleaseList>
    <Release ReleaseType="Single"><ReleaseReference>R1</ReleaseReference><DisplayTitleText>Song</DisplayTitleText></Release>
  </ReleaseList>
</NewReleaseMessage>`

func TestVerify_CleanDocumentRoundTripsPerfectly(t *testing.T) {
	rep, err := roundtrip.Verify(context.Background(), []byte(cleanRelease), roundtrip.DefaultOptions())
	require.NoError(t, err)
	assert.True(t, rep.RoundTripSuccess)
	assert.Equal(t, 1.0, rep.FidelityScore)
	assert.True(t, rep.CanonicalizationConsistent)
	assert.True(t, rep.DeterminismVerified)
	assert.Empty(t, rep.Issues)
}

func TestVerify_UnparseableInputReturnsError(t *testing.T) {
	_, err := roundtrip.Verify(context.Background(), []byte("not xml at all"), roundtrip.DefaultOptions())
	assert.Error(t, err)
}

func TestVerify_EquivalentFormattingStillRoundTrips(t *testing.T) {
	reformatted := `<NewReleaseMessage xmlns="http://ddex.net/xml/ern/43"><MessageHeader><MessageThreadId>t</MessageThreadId><MessageId>m</MessageId></MessageHeader><ReleaseList><Release ReleaseType="Single"><ReleaseReference>R1</ReleaseReference><DisplayTitleText>Song</DisplayTitleText></Release></ReleaseList></NewReleaseMessage>`
	rep, err := roundtrip.Verify(context.Background(), []byte(reformatted), roundtrip.DefaultOptions())
	require.NoError(t, err)
	assert.True(t, rep.RoundTripSuccess)
}

func TestCompare_DetectsAttributeAndChildDivergence(t *testing.T) {
	ctx := context.Background()
	docA, err := graph.NewBuilder(graph.DefaultBuilderConfig()).Build(ctx, strings.NewReader(cleanRelease))
	require.NoError(t, err)

	changed := `<NewReleaseMessage xmlns="http://ddex.net/xml/ern/43">
  <MessageHeader><MessageThreadId>t</MessageThreadId><MessageId>m</MessageId></MessageHeader>
  <ReleaseList>
    <Release ReleaseType="Album"><ReleaseReference>R1</ReleaseReference><DisplayTitleText>Song</DisplayTitleText></Release>
  </ReleaseList>
</NewReleaseMessage>`
	docB, err := graph.NewBuilder(graph.DefaultBuilderConfig()).Build(ctx, strings.NewReader(changed))
	require.NoError(t, err)

	elemA, err := canon.Canonicalize(docA, canon.Options{})
	require.NoError(t, err)
	elemB, err := canon.Canonicalize(docB, canon.Options{})
	require.NoError(t, err)

	issues := roundtrip.Compare(elemA, elemB)
	require.NotEmpty(t, issues)
}
