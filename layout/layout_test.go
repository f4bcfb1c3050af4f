package layout_test

import (
	"testing"

	"code.hybscloud.com/fabric/codec"
	"code.hybscloud.com/fabric/layout"
)

func sampleLayout() layout.FabricLayout {
	return layout.FabricLayout{
		Endpoints: []layout.EndpointLayout{
			{
				Ports: []layout.PortLayout{
					{PortRole: codec.RoleCmdLossless, Role: layout.KindMsgRing, Base: 0, Capacity: 4096},
					{PortRole: codec.RoleCmdBestEffort, Role: layout.KindMsgRing, Base: 4096, Capacity: 2048},
					{PortRole: codec.RoleCmdMailbox, Role: layout.KindMailbox, Base: 6144, PayloadSize: 64},
					{PortRole: codec.RoleReplies, Role: layout.KindMsgRing, Base: 6208, Capacity: 4096},
					{PortRole: codec.RoleSlotPool, Role: layout.KindSlotPool, Base: 10304, SlotSize: 65536, SlotAlign: 65536, Count: 4},
				},
			},
			{
				Ports: []layout.PortLayout{
					{PortRole: codec.RoleCmdLossless, Role: layout.KindMsgRing, Base: 272000, Capacity: 1024},
				},
			},
		},
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	want := sampleLayout()

	data, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	var got layout.FabricLayout
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}

	if len(got.Endpoints) != len(want.Endpoints) {
		t.Fatalf("endpoint count: got %d, want %d", len(got.Endpoints), len(want.Endpoints))
	}
	for i, ep := range want.Endpoints {
		if len(got.Endpoints[i].Ports) != len(ep.Ports) {
			t.Fatalf("endpoint %d port count: got %d, want %d", i, len(got.Endpoints[i].Ports), len(ep.Ports))
		}
		for j, p := range ep.Ports {
			if got.Endpoints[i].Ports[j] != p {
				t.Fatalf("endpoint %d port %d: got %+v, want %+v", i, j, got.Endpoints[i].Ports[j], p)
			}
		}
	}
}

func TestUnmarshalRejectsTruncatedBuffer(t *testing.T) {
	want := sampleLayout()
	data, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	var got layout.FabricLayout
	if err := got.UnmarshalBinary(data[:len(data)-1]); err == nil {
		t.Fatalf("UnmarshalBinary on truncated buffer: want error")
	}
}

func TestUnmarshalEmptyLayout(t *testing.T) {
	want := layout.FabricLayout{}
	data, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	var got layout.FabricLayout
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if len(got.Endpoints) != 0 {
		t.Fatalf("Endpoints: got %d, want 0", len(got.Endpoints))
	}
}
