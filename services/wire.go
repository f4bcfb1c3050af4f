// Package services ships mock Kernel/Gpu/Audio/Fs implementations of the
// transport fabric's ServiceEngine contract, grounded in
// original_source's crates/04-services/* mocks and crate/06-apps mock
// harness. Each engine drains its own command ports, decodes records
// with a small per-service wire codec satisfying codec.Codec[T], and
// produces replies onto its own reply ring — exactly the division of
// labor spec §4.6 assigns to worker-island engines.
package services

import (
	"encoding/binary"
	"fmt"

	"code.hybscloud.com/fabric/codec"
	"code.hybscloud.com/fabric/world"
)

// Tag ranges, per SPEC_FULL §3: Kernel 0x01-0x1F (0x13 reserved for
// the scenario event payload), Gpu 0x20-0x2F, Audio 0x30-0x3F,
// Fs 0x40-0x4F.
const (
	TagKernelTick                 = 0x01
	TagKernelLoadRom              = 0x02
	TagKernelDebugSnapshot        = 0x03
	TagKernelDebugMem             = 0x04
	TagKernelDebugStepInstruction = 0x05
	TagKernelDebugStepFrame       = 0x06

	TagKernelLaneFrame = 0x11
	TagKernelTickDone  = 0x12
	// 0x13 is reserved for the scenario event payload (§6).
	TagKernelRomLoaded = 0x14
	TagKernelDebugRep  = 0x15

	TagGpuUploadFrame = 0x20
	TagGpuFrameShown  = 0x21

	TagAudioSubmit  = 0x30
	TagAudioPlayed  = 0x31
	TagAudioUnderrun = 0x32

	TagFsPersist = 0x40
	TagFsSaved   = 0x41
)

// WireVersion is the single schema version every codec in this package
// encodes and expects.
const WireVersion = 1

// kernelCmdCodec encodes/decodes world.KernelCmd.
type kernelCmdCodec struct{}

func (kernelCmdCodec) Encode(cmd world.KernelCmd) (codec.Encoded, error) {
	switch cmd.Kind {
	case world.KernelTick:
		payload := make([]byte, 7)
		binary.LittleEndian.PutUint16(payload[0:2], cmd.Group)
		payload[2] = uint8(cmd.Purpose)
		binary.LittleEndian.PutUint32(payload[3:7], cmd.Budget)
		return codec.Encoded{Class: codec.Lossless, Envelope: codec.Envelope{Tag: TagKernelTick, Version: WireVersion}, Payload: payload}, nil

	case world.KernelLoadRom:
		payload := make([]byte, 2+len(cmd.Bytes))
		binary.LittleEndian.PutUint16(payload[0:2], cmd.Group)
		copy(payload[2:], cmd.Bytes)
		return codec.Encoded{Class: codec.Lossless, Envelope: codec.Envelope{Tag: TagKernelLoadRom, Version: WireVersion}, Payload: payload}, nil

	case world.KernelDebugSnapshot:
		payload := make([]byte, 2)
		binary.LittleEndian.PutUint16(payload, cmd.Group)
		return codec.Encoded{Class: codec.BestEffort, Envelope: codec.Envelope{Tag: TagKernelDebugSnapshot, Version: WireVersion}, Payload: payload}, nil

	case world.KernelDebugMem:
		payload := make([]byte, 11)
		binary.LittleEndian.PutUint16(payload[0:2], cmd.Group)
		payload[2] = uint8(cmd.Space)
		binary.LittleEndian.PutUint32(payload[3:7], cmd.Base)
		binary.LittleEndian.PutUint32(payload[7:11], cmd.Len)
		return codec.Encoded{Class: codec.BestEffort, Envelope: codec.Envelope{Tag: TagKernelDebugMem, Version: WireVersion}, Payload: payload}, nil

	case world.KernelDebugStepInstruction:
		payload := make([]byte, 6)
		binary.LittleEndian.PutUint16(payload[0:2], cmd.Group)
		binary.LittleEndian.PutUint32(payload[2:6], cmd.StepN)
		return codec.Encoded{Class: codec.Lossless, Envelope: codec.Envelope{Tag: TagKernelDebugStepInstruction, Version: WireVersion}, Payload: payload}, nil

	case world.KernelDebugStepFrame:
		payload := make([]byte, 2)
		binary.LittleEndian.PutUint16(payload, cmd.Group)
		return codec.Encoded{Class: codec.Lossless, Envelope: codec.Envelope{Tag: TagKernelDebugStepFrame, Version: WireVersion}, Payload: payload}, nil

	default:
		return codec.Encoded{}, fmt.Errorf("services: unknown KernelCmd kind %d", cmd.Kind)
	}
}

func (kernelCmdCodec) Decode(e codec.Envelope, payload []byte) (world.KernelCmd, error) {
	if e.Version != WireVersion {
		return world.KernelCmd{}, &codec.Error{Tag: e.Tag, Version: e.Version, Err: codec.ErrVersionMismatch}
	}
	switch e.Tag {
	case TagKernelTick:
		if len(payload) < 7 {
			return world.KernelCmd{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
		}
		return world.KernelCmd{
			Kind:    world.KernelTick,
			Group:   binary.LittleEndian.Uint16(payload[0:2]),
			Purpose: world.TickPurpose(payload[2]),
			Budget:  binary.LittleEndian.Uint32(payload[3:7]),
		}, nil

	case TagKernelLoadRom:
		if len(payload) < 2 {
			return world.KernelCmd{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
		}
		bytes := make([]byte, len(payload)-2)
		copy(bytes, payload[2:])
		return world.KernelCmd{Kind: world.KernelLoadRom, Group: binary.LittleEndian.Uint16(payload[0:2]), Bytes: bytes}, nil

	case TagKernelDebugSnapshot:
		if len(payload) < 2 {
			return world.KernelCmd{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
		}
		return world.KernelCmd{Kind: world.KernelDebugSnapshot, Group: binary.LittleEndian.Uint16(payload[0:2])}, nil

	case TagKernelDebugMem:
		if len(payload) < 11 {
			return world.KernelCmd{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
		}
		return world.KernelCmd{
			Kind:  world.KernelDebugMem,
			Group: binary.LittleEndian.Uint16(payload[0:2]),
			Space: world.MemSpace(payload[2]),
			Base:  binary.LittleEndian.Uint32(payload[3:7]),
			Len:   binary.LittleEndian.Uint32(payload[7:11]),
		}, nil

	case TagKernelDebugStepInstruction:
		if len(payload) < 6 {
			return world.KernelCmd{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
		}
		return world.KernelCmd{
			Kind:  world.KernelDebugStepInstruction,
			Group: binary.LittleEndian.Uint16(payload[0:2]),
			StepN: binary.LittleEndian.Uint32(payload[2:6]),
		}, nil

	case TagKernelDebugStepFrame:
		if len(payload) < 2 {
			return world.KernelCmd{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
		}
		return world.KernelCmd{Kind: world.KernelDebugStepFrame, Group: binary.LittleEndian.Uint16(payload[0:2])}, nil

	default:
		return world.KernelCmd{}, &codec.Error{Tag: e.Tag, Err: codec.ErrUnknownTag}
	}
}

// kernelRepCodec encodes/decodes world.KernelRep.
type kernelRepCodec struct{}

func (kernelRepCodec) Encode(rep world.KernelRep) (codec.Encoded, error) {
	switch rep.Kind {
	case world.LaneFrame:
		payload := make([]byte, 13)
		payload[0] = rep.Lane
		binary.LittleEndian.PutUint32(payload[1:5], rep.Span.StartIdx)
		binary.LittleEndian.PutUint32(payload[5:9], rep.Span.Count)
		binary.LittleEndian.PutUint32(payload[9:13], rep.FrameID)
		return codec.Encoded{Envelope: codec.Envelope{Tag: TagKernelLaneFrame, Version: WireVersion}, Payload: payload}, nil

	case world.TickDone:
		return codec.Encoded{Envelope: codec.Envelope{Tag: TagKernelTickDone, Version: WireVersion}}, nil

	case world.RomLoaded:
		return codec.Encoded{Envelope: codec.Envelope{Tag: TagKernelRomLoaded, Version: WireVersion}}, nil

	case world.DebugRep:
		payload := make([]byte, 2+len(rep.Debug.Note))
		binary.LittleEndian.PutUint16(payload[0:2], rep.Debug.Group)
		copy(payload[2:], rep.Debug.Note)
		return codec.Encoded{Envelope: codec.Envelope{Tag: TagKernelDebugRep, Version: WireVersion}, Payload: payload}, nil

	default:
		return codec.Encoded{}, fmt.Errorf("services: unknown KernelRep kind %d", rep.Kind)
	}
}

func (kernelRepCodec) Decode(e codec.Envelope, payload []byte) (world.KernelRep, error) {
	if e.Version != WireVersion {
		return world.KernelRep{}, &codec.Error{Tag: e.Tag, Version: e.Version, Err: codec.ErrVersionMismatch}
	}
	switch e.Tag {
	case TagKernelLaneFrame:
		if len(payload) < 13 {
			return world.KernelRep{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
		}
		return world.KernelRep{
			Kind:    world.LaneFrame,
			Lane:    payload[0],
			Span:    slotSpanOf(binary.LittleEndian.Uint32(payload[1:5]), binary.LittleEndian.Uint32(payload[5:9])),
			FrameID: binary.LittleEndian.Uint32(payload[9:13]),
		}, nil

	case TagKernelTickDone:
		return world.KernelRep{Kind: world.TickDone}, nil

	case TagKernelRomLoaded:
		return world.KernelRep{Kind: world.RomLoaded}, nil

	case TagKernelDebugRep:
		if len(payload) < 2 {
			return world.KernelRep{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
		}
		return world.KernelRep{
			Kind: world.DebugRep,
			Debug: world.DebugReport{
				Group: binary.LittleEndian.Uint16(payload[0:2]),
				Note:  string(payload[2:]),
			},
		}, nil

	default:
		return world.KernelRep{}, &codec.Error{Tag: e.Tag, Err: codec.ErrUnknownTag}
	}
}
