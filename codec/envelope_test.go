package codec_test

import (
	"testing"

	"code.hybscloud.com/fabric/codec"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	e := codec.Envelope{Tag: 0x13, Version: 1, Flags: 0, Length: 8}
	buf := make([]byte, codec.EnvelopeSize)
	e.Encode(buf)

	got, err := codec.DecodeEnvelope(buf)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if got != e {
		t.Fatalf("got %+v, want %+v", got, e)
	}
}

func TestEnvelopeReservedFlagsRejected(t *testing.T) {
	e := codec.Envelope{Tag: 1, Version: 1, Flags: 0x02, Length: 0}
	buf := make([]byte, codec.EnvelopeSize)
	e.Encode(buf)

	if _, err := codec.DecodeEnvelope(buf); err != codec.ErrReservedFlags {
		t.Fatalf("got %v, want ErrReservedFlags", err)
	}
}

func TestEnvelopeSkipRecordFlag(t *testing.T) {
	e := codec.Envelope{Tag: codec.TagSkip, Flags: codec.FlagSkipRecord, Length: 56}
	if !e.SkipRecord() {
		t.Fatalf("SkipRecord() = false, want true")
	}
}

func TestEnvelopePaddedLength(t *testing.T) {
	cases := []struct {
		length uint32
		want   int
	}{
		{0, 8},
		{1, 16},
		{8, 16},
		{9, 24},
		{56, 64},
	}
	for _, c := range cases {
		e := codec.Envelope{Length: c.length}
		if got := e.PaddedLength(); got != c.want {
			t.Fatalf("PaddedLength(length=%d) = %d, want %d", c.length, got, c.want)
		}
	}
}

func TestDecodeEnvelopeShortBuffer(t *testing.T) {
	if _, err := codec.DecodeEnvelope(make([]byte, 4)); err != codec.ErrShortHeader {
		t.Fatalf("got %v, want ErrShortHeader", err)
	}
}
