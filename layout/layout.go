// Package layout implements the fabric layout descriptor from spec §6:
// an ordered sequence of endpoints, each an ordered sequence of
// (role, layout) pairs, serialized as a single little-endian binary blob
// a worker process reads at bootstrap to reconstruct its half of the
// shared region without any out-of-band coordination.
//
// The codec is hand-written rather than reflection-based, matching the
// explicit byte-for-byte wire description in spec.md and the manual
// encode/decode style codec.Envelope already uses in this repo.
package layout

import (
	"encoding/binary"
	"fmt"

	"code.hybscloud.com/fabric/codec"
)

// Kind tags which concrete primitive a PortLayout describes.
type Kind uint8

const (
	KindMsgRing Kind = iota
	KindMailbox
	KindSlotPool
)

// PortLayout describes one port's placement within the shared region.
// All offsets are relative to the fabric's single shared memory base;
// all sizes are in bytes. Only the fields relevant to Kind are
// meaningful.
type PortLayout struct {
	Role Kind
	PortRole codec.PortRole

	Base uint32

	// MsgRing
	Capacity uint32

	// Mailbox
	PayloadSize uint32

	// SlotPool
	SlotSize  uint32
	SlotAlign uint32
	Count     uint32
}

// EndpointLayout is the ordered port list exposing one service.
type EndpointLayout struct {
	Ports []PortLayout
}

// FabricLayout is the full serialized descriptor: an ordered sequence of
// endpoints.
type FabricLayout struct {
	Endpoints []EndpointLayout
}

// MarshalBinary encodes the layout as a little-endian byte stream:
//
//	u32 endpoint count
//	for each endpoint:
//	  u32 port count
//	  for each port:
//	    u8  port role (codec.PortRole)
//	    u8  layout kind
//	    u32 base
//	    u32 field1 (capacity | payload size | slot size)
//	    u32 field2 (0 | 0 | slot align)
//	    u32 field3 (0 | 0 | slot count)
func (fl *FabricLayout) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(fl.Endpoints)))

	for _, ep := range fl.Endpoints {
		head := make([]byte, 4)
		binary.LittleEndian.PutUint32(head, uint32(len(ep.Ports)))
		buf = append(buf, head...)

		for _, p := range ep.Ports {
			rec := make([]byte, 18)
			rec[0] = uint8(p.PortRole)
			rec[1] = uint8(p.Role)
			binary.LittleEndian.PutUint32(rec[2:6], p.Base)
			switch p.Role {
			case KindMsgRing:
				binary.LittleEndian.PutUint32(rec[6:10], p.Capacity)
			case KindMailbox:
				binary.LittleEndian.PutUint32(rec[6:10], p.PayloadSize)
			case KindSlotPool:
				binary.LittleEndian.PutUint32(rec[6:10], p.SlotSize)
				binary.LittleEndian.PutUint32(rec[10:14], p.SlotAlign)
				binary.LittleEndian.PutUint32(rec[14:18], p.Count)
			default:
				return nil, fmt.Errorf("layout: unknown port kind %d", p.Role)
			}
			buf = append(buf, rec...)
		}
	}
	return buf, nil
}

// UnmarshalBinary decodes a FabricLayout previously produced by
// MarshalBinary.
func (fl *FabricLayout) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("layout: short buffer, need at least 4 bytes, got %d", len(data))
	}
	numEndpoints := binary.LittleEndian.Uint32(data[0:4])
	off := 4

	endpoints := make([]EndpointLayout, 0, numEndpoints)
	for i := uint32(0); i < numEndpoints; i++ {
		if off+4 > len(data) {
			return fmt.Errorf("layout: truncated endpoint header at offset %d", off)
		}
		numPorts := binary.LittleEndian.Uint32(data[off : off+4])
		off += 4

		ports := make([]PortLayout, 0, numPorts)
		for j := uint32(0); j < numPorts; j++ {
			if off+18 > len(data) {
				return fmt.Errorf("layout: truncated port record at offset %d", off)
			}
			rec := data[off : off+18]
			off += 18

			p := PortLayout{
				PortRole: codec.PortRole(rec[0]),
				Role:     Kind(rec[1]),
				Base:     binary.LittleEndian.Uint32(rec[2:6]),
			}
			switch p.Role {
			case KindMsgRing:
				p.Capacity = binary.LittleEndian.Uint32(rec[6:10])
			case KindMailbox:
				p.PayloadSize = binary.LittleEndian.Uint32(rec[6:10])
			case KindSlotPool:
				p.SlotSize = binary.LittleEndian.Uint32(rec[6:10])
				p.SlotAlign = binary.LittleEndian.Uint32(rec[10:14])
				p.Count = binary.LittleEndian.Uint32(rec[14:18])
			default:
				return fmt.Errorf("layout: unknown port kind %d at offset %d", rec[1], off-18)
			}
			ports = append(ports, p)
		}
		endpoints = append(endpoints, EndpointLayout{Ports: ports})
	}

	fl.Endpoints = endpoints
	return nil
}
