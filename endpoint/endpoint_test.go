package endpoint_test

import (
	"testing"

	"code.hybscloud.com/fabric/codec"
	"code.hybscloud.com/fabric/endpoint"
	"code.hybscloud.com/fabric/mailbox"
	"code.hybscloud.com/fabric/msgring"
)

func newTestEndpoint(t *testing.T) *endpoint.Endpoint {
	t.Helper()
	lossless, err := msgring.New(make([]byte, 256))
	if err != nil {
		t.Fatalf("msgring.New(lossless): %v", err)
	}
	bestEffort, err := msgring.New(make([]byte, 256))
	if err != nil {
		t.Fatalf("msgring.New(bestEffort): %v", err)
	}
	replies, err := msgring.New(make([]byte, 256))
	if err != nil {
		t.Fatalf("msgring.New(replies): %v", err)
	}
	mb := mailbox.New(32)

	return endpoint.NewBuilder().
		WithCmdLossless(lossless).
		WithCmdBestEffort(bestEffort).
		WithCmdMailbox(mb).
		WithReplies(replies).
		Build()
}

func enc(tag uint8, payload []byte) codec.Encoded {
	return codec.Encoded{Envelope: codec.Envelope{Tag: tag, Version: 1}, Payload: payload}
}

func TestTrySubmitLosslessAcceptsThenWouldBlocksOnFullRing(t *testing.T) {
	ep := newTestEndpoint(t)
	for i := 0; i < 17; i++ {
		outcome, err := ep.TrySubmit(enc(1, []byte("cmd")), endpoint.Lossless)
		if err != nil {
			t.Fatalf("TrySubmit(%d): %v", i, err)
		}
		if outcome == endpoint.WouldBlock {
			return
		}
		if outcome != endpoint.Accepted {
			t.Fatalf("TrySubmit(%d): got %v, want Accepted", i, outcome)
		}
	}
	t.Fatalf("256-byte ring with 16-byte records never reported WouldBlock after 17 submits")
}

func TestTrySubmitBestEffortDropsInsteadOfBlocking(t *testing.T) {
	ep := newTestEndpoint(t)
	var sawDropped bool
	for i := 0; i < 20; i++ {
		outcome, err := ep.TrySubmit(enc(2, []byte("cmd")), endpoint.BestEffort)
		if err != nil {
			t.Fatalf("TrySubmit(%d): %v", i, err)
		}
		if outcome == endpoint.Dropped {
			sawDropped = true
			break
		}
	}
	if !sawDropped {
		t.Fatalf("BestEffort submit into an exhausted ring never reported Dropped")
	}
}

func TestTrySubmitCoalesceReportsAcceptedThenCoalesced(t *testing.T) {
	ep := newTestEndpoint(t)
	outcome, err := ep.TrySubmit(enc(3, []byte("A")), endpoint.Coalesce)
	if err != nil {
		t.Fatalf("TrySubmit: %v", err)
	}
	if outcome != endpoint.Accepted {
		t.Fatalf("first Coalesce submit: got %v, want Accepted", outcome)
	}

	outcome, err = ep.TrySubmit(enc(3, []byte("B")), endpoint.Coalesce)
	if err != nil {
		t.Fatalf("TrySubmit: %v", err)
	}
	if outcome != endpoint.Coalesced {
		t.Fatalf("second Coalesce submit over unread value: got %v, want Coalesced", outcome)
	}
}

func TestTrySubmitOnClosedEndpointReportsClosed(t *testing.T) {
	ep := newTestEndpoint(t)
	ep.Close()
	outcome, err := ep.TrySubmit(enc(1, []byte("x")), endpoint.Lossless)
	if err != nil {
		t.Fatalf("TrySubmit on closed endpoint: %v", err)
	}
	if outcome != endpoint.Closed {
		t.Fatalf("got %v, want Closed", outcome)
	}
}

func TestDrainOnEmptyReplyRingReturnsNoReports(t *testing.T) {
	ep := newTestEndpoint(t)
	// Submitting and draining through the public API alone can't reach
	// into the private replies ring, so this test covers only the
	// empty-ring path.
	reports := ep.Drain(8)
	if len(reports) != 0 {
		t.Fatalf("Drain on an empty reply ring: got %d reports, want 0", len(reports))
	}
}

func TestPolicyFromPortClassDefaults(t *testing.T) {
	cases := map[codec.PortClass]endpoint.Policy{
		codec.Lossless:   endpoint.Lossless,
		codec.BestEffort:  endpoint.BestEffort,
		codec.Coalesce:    endpoint.Coalesce,
	}
	for class, want := range cases {
		if got := endpoint.PolicyFromPortClass(class); got != want {
			t.Fatalf("PolicyFromPortClass(%v): got %v, want %v", class, got, want)
		}
	}
}
