package erncore

import (
	"context"

	"github.com/ddexkit/erncore/roundtrip"
)

// TestRoundTrip runs the Round-Trip Verifier over input (spec §6.3
// "test_round_trip(input_bytes, options) -> RoundTripReport as in §4.8").
func TestRoundTrip(ctx context.Context, input []byte, opts roundtrip.Options) (*roundtrip.Report, error) {
	return roundtrip.Verify(ctx, input, opts)
}
