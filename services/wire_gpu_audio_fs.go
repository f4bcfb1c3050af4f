package services

import (
	"encoding/binary"

	"code.hybscloud.com/fabric/codec"
	"code.hybscloud.com/fabric/slotpool"
	"code.hybscloud.com/fabric/world"
)

func slotSpanOf(start, count uint32) slotpool.SlotSpan {
	return slotpool.SlotSpan{StartIdx: start, Count: count}
}

// gpuCmdCodec encodes/decodes world.GpuCmd (UploadFrame is its only
// variant, always submitted Must per spec §4.5).
type gpuCmdCodec struct{}

func (gpuCmdCodec) Encode(cmd world.GpuCmd) (codec.Encoded, error) {
	payload := make([]byte, 9)
	payload[0] = cmd.Lane
	binary.LittleEndian.PutUint32(payload[1:5], cmd.Span.StartIdx)
	binary.LittleEndian.PutUint32(payload[5:9], cmd.Span.Count)
	return codec.Encoded{Class: codec.Lossless, Envelope: codec.Envelope{Tag: TagGpuUploadFrame, Version: WireVersion}, Payload: payload}, nil
}

func (gpuCmdCodec) Decode(e codec.Envelope, payload []byte) (world.GpuCmd, error) {
	if e.Version != WireVersion {
		return world.GpuCmd{}, &codec.Error{Tag: e.Tag, Version: e.Version, Err: codec.ErrVersionMismatch}
	}
	if e.Tag != TagGpuUploadFrame {
		return world.GpuCmd{}, &codec.Error{Tag: e.Tag, Err: codec.ErrUnknownTag}
	}
	if len(payload) < 9 {
		return world.GpuCmd{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
	}
	return world.GpuCmd{
		Lane: payload[0],
		Span: slotSpanOf(binary.LittleEndian.Uint32(payload[1:5]), binary.LittleEndian.Uint32(payload[5:9])),
	}, nil
}

// GpuRep is the mock Gpu service's only report: a presentation
// acknowledgement for a previously uploaded lane/frame.
type GpuRep struct {
	Lane    uint8
	FrameID uint64
}

type gpuRepCodec struct{}

func (gpuRepCodec) Encode(rep GpuRep) (codec.Encoded, error) {
	payload := make([]byte, 9)
	payload[0] = rep.Lane
	binary.LittleEndian.PutUint64(payload[1:9], rep.FrameID)
	return codec.Encoded{Envelope: codec.Envelope{Tag: TagGpuFrameShown, Version: WireVersion}, Payload: payload}, nil
}

func (gpuRepCodec) Decode(e codec.Envelope, payload []byte) (GpuRep, error) {
	if e.Version != WireVersion {
		return GpuRep{}, &codec.Error{Tag: e.Tag, Version: e.Version, Err: codec.ErrVersionMismatch}
	}
	if e.Tag != TagGpuFrameShown {
		return GpuRep{}, &codec.Error{Tag: e.Tag, Err: codec.ErrUnknownTag}
	}
	if len(payload) < 9 {
		return GpuRep{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
	}
	return GpuRep{Lane: payload[0], FrameID: binary.LittleEndian.Uint64(payload[1:9])}, nil
}

// audioCmdCodec encodes/decodes world.AudioCmd (Submit is its only
// variant).
type audioCmdCodec struct{}

func (audioCmdCodec) Encode(cmd world.AudioCmd) (codec.Encoded, error) {
	payload := make([]byte, 12)
	binary.LittleEndian.PutUint32(payload[0:4], cmd.Span.StartIdx)
	binary.LittleEndian.PutUint32(payload[4:8], cmd.Span.Count)
	binary.LittleEndian.PutUint32(payload[8:12], cmd.Frames)
	return codec.Encoded{Class: codec.Lossless, Envelope: codec.Envelope{Tag: TagAudioSubmit, Version: WireVersion}, Payload: payload}, nil
}

func (audioCmdCodec) Decode(e codec.Envelope, payload []byte) (world.AudioCmd, error) {
	if e.Version != WireVersion {
		return world.AudioCmd{}, &codec.Error{Tag: e.Tag, Version: e.Version, Err: codec.ErrVersionMismatch}
	}
	if e.Tag != TagAudioSubmit {
		return world.AudioCmd{}, &codec.Error{Tag: e.Tag, Err: codec.ErrUnknownTag}
	}
	if len(payload) < 12 {
		return world.AudioCmd{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
	}
	return world.AudioCmd{
		Span:   slotSpanOf(binary.LittleEndian.Uint32(payload[0:4]), binary.LittleEndian.Uint32(payload[4:8])),
		Frames: binary.LittleEndian.Uint32(payload[8:12]),
	}, nil
}

// audioRepCodec encodes/decodes world.AudioRep.
type audioRepCodec struct{}

func (audioRepCodec) Encode(rep world.AudioRep) (codec.Encoded, error) {
	switch rep.Kind {
	case world.Played:
		payload := make([]byte, 4)
		binary.LittleEndian.PutUint32(payload, rep.Frames)
		return codec.Encoded{Envelope: codec.Envelope{Tag: TagAudioPlayed, Version: WireVersion}, Payload: payload}, nil
	case world.Underrun:
		return codec.Encoded{Envelope: codec.Envelope{Tag: TagAudioUnderrun, Version: WireVersion}}, nil
	default:
		return codec.Encoded{}, &codec.Error{Err: codec.ErrUnknownTag}
	}
}

func (audioRepCodec) Decode(e codec.Envelope, payload []byte) (world.AudioRep, error) {
	if e.Version != WireVersion {
		return world.AudioRep{}, &codec.Error{Tag: e.Tag, Version: e.Version, Err: codec.ErrVersionMismatch}
	}
	switch e.Tag {
	case TagAudioPlayed:
		if len(payload) < 4 {
			return world.AudioRep{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
		}
		return world.AudioRep{Kind: world.Played, Frames: binary.LittleEndian.Uint32(payload)}, nil
	case TagAudioUnderrun:
		return world.AudioRep{Kind: world.Underrun}, nil
	default:
		return world.AudioRep{}, &codec.Error{Tag: e.Tag, Err: codec.ErrUnknownTag}
	}
}

// fsCmdCodec encodes/decodes world.FsCmd (Persist is its only variant).
// Wire shape: u16 path length, path bytes, remaining bytes are the
// payload to persist.
type fsCmdCodec struct{}

func (fsCmdCodec) Encode(cmd world.FsCmd) (codec.Encoded, error) {
	payload := make([]byte, 2+len(cmd.Path)+len(cmd.Bytes))
	binary.LittleEndian.PutUint16(payload[0:2], uint16(len(cmd.Path)))
	copy(payload[2:], cmd.Path)
	copy(payload[2+len(cmd.Path):], cmd.Bytes)
	return codec.Encoded{Class: codec.Coalesce, Envelope: codec.Envelope{Tag: TagFsPersist, Version: WireVersion}, Payload: payload}, nil
}

func (fsCmdCodec) Decode(e codec.Envelope, payload []byte) (world.FsCmd, error) {
	if e.Version != WireVersion {
		return world.FsCmd{}, &codec.Error{Tag: e.Tag, Version: e.Version, Err: codec.ErrVersionMismatch}
	}
	if e.Tag != TagFsPersist {
		return world.FsCmd{}, &codec.Error{Tag: e.Tag, Err: codec.ErrUnknownTag}
	}
	if len(payload) < 2 {
		return world.FsCmd{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
	}
	pathLen := int(binary.LittleEndian.Uint16(payload[0:2]))
	if len(payload) < 2+pathLen {
		return world.FsCmd{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
	}
	path := string(payload[2 : 2+pathLen])
	bytes := make([]byte, len(payload)-2-pathLen)
	copy(bytes, payload[2+pathLen:])
	return world.FsCmd{Kind: world.FsPersist, Path: path, Bytes: bytes}, nil
}

// FsRep is the mock Fs service's only report: a save acknowledgement.
type FsRep struct {
	Path string
	OK   bool
}

type fsRepCodec struct{}

func (fsRepCodec) Encode(rep FsRep) (codec.Encoded, error) {
	payload := make([]byte, 1+len(rep.Path))
	if rep.OK {
		payload[0] = 1
	}
	copy(payload[1:], rep.Path)
	return codec.Encoded{Envelope: codec.Envelope{Tag: TagFsSaved, Version: WireVersion}, Payload: payload}, nil
}

func (fsRepCodec) Decode(e codec.Envelope, payload []byte) (FsRep, error) {
	if e.Version != WireVersion {
		return FsRep{}, &codec.Error{Tag: e.Tag, Version: e.Version, Err: codec.ErrVersionMismatch}
	}
	if e.Tag != TagFsSaved {
		return FsRep{}, &codec.Error{Tag: e.Tag, Err: codec.ErrUnknownTag}
	}
	if len(payload) < 1 {
		return FsRep{}, &codec.Error{Tag: e.Tag, Length: uint32(len(payload)), Err: codec.ErrLengthViolation}
	}
	return FsRep{OK: payload[0] != 0, Path: string(payload[1:])}, nil
}
