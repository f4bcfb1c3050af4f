package mailbox_test

import (
	"bytes"
	"testing"

	"code.hybscloud.com/fabric/codec"
	"code.hybscloud.com/fabric/mailbox"
)

func TestRecvBeforeAnySendIsEmpty(t *testing.T) {
	m := mailbox.New(16)
	if _, _, err := m.TryRecv(); !mailbox.IsWouldBlock(err) {
		t.Fatalf("TryRecv before any Send: got %v, want ErrWouldBlock", err)
	}
}

func TestSendRecvRoundTrip(t *testing.T) {
	m := mailbox.New(16)
	payload := []byte("status")
	if coalesced, err := m.Send(codec.Envelope{Tag: 7, Version: 1}, payload); err != nil {
		t.Fatalf("Send: %v", err)
	} else if coalesced {
		t.Fatalf("Send into an empty mailbox reported coalesced")
	}

	e, got, err := m.TryRecv()
	if err != nil {
		t.Fatalf("TryRecv: %v", err)
	}
	if e.Tag != 7 {
		t.Fatalf("tag = %d, want 7", e.Tag)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload = %q, want %q", got, payload)
	}

	if _, _, err := m.TryRecv(); !mailbox.IsWouldBlock(err) {
		t.Fatalf("second TryRecv with no intervening Send: got %v, want ErrWouldBlock", err)
	}
}

// TestCoalescing matches spec scenario 6: three sends A, B, C with no
// intervening recv; the next recv returns C, the following recv returns
// Empty (the cell is consumed by reading).
func TestCoalescing(t *testing.T) {
	m := mailbox.New(8)
	var lastCoalesced bool
	for i, v := range []byte{'A', 'B', 'C'} {
		coalesced, err := m.Send(codec.Envelope{Tag: 1}, []byte{v})
		if err != nil {
			t.Fatalf("Send(%c): %v", v, err)
		}
		if i == 0 && coalesced {
			t.Fatalf("first send into an empty mailbox reported coalesced")
		}
		if i > 0 && !coalesced {
			t.Fatalf("send(%c) over an unread pending value did not report coalesced", v)
		}
		lastCoalesced = coalesced
	}
	_ = lastCoalesced

	_, got, err := m.TryRecv()
	if err != nil {
		t.Fatalf("TryRecv: %v", err)
	}
	if !bytes.Equal(got, []byte{'C'}) {
		t.Fatalf("got %q, want %q (most recent send)", got, []byte{'C'})
	}

	if _, _, err := m.TryRecv(); !mailbox.IsWouldBlock(err) {
		t.Fatalf("following TryRecv: got %v, want ErrWouldBlock (Empty)", err)
	}
}

func TestSendRejectsOversizedPayload(t *testing.T) {
	m := mailbox.New(4)
	if _, err := m.Send(codec.Envelope{}, []byte("too long")); err == nil {
		t.Fatalf("Send(8 bytes) into 4-byte mailbox: want error")
	}
}
