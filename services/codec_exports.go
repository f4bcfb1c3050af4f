package services

import (
	"code.hybscloud.com/fabric/codec"
	"code.hybscloud.com/fabric/world"
)

// The scheduler package submits and drains WorkCmds/Reports for every
// service target but never needs to see the envelope-framing details —
// these exported wrappers are the only crossing point between scheduler
// and the per-service wire codecs defined in wire.go/wire_gpu_audio_fs.go.

// EncodeKernelCmd encodes cmd for submission to the kernel service.
func EncodeKernelCmd(cmd world.KernelCmd) (codec.Encoded, error) {
	return kernelCmdCodec{}.Encode(cmd)
}

// DecodeKernelRep decodes a kernel reply record.
func DecodeKernelRep(e codec.Envelope, payload []byte) (world.KernelRep, error) {
	return kernelRepCodec{}.Decode(e, payload)
}

// EncodeGpuCmd encodes cmd for submission to the GPU service.
func EncodeGpuCmd(cmd world.GpuCmd) (codec.Encoded, error) {
	return gpuCmdCodec{}.Encode(cmd)
}

// DecodeGpuRep decodes a GPU reply record. GpuRep carries no information
// world.Report models today — callers that only need to know a reply
// arrived (e.g. the scheduler's drain loop) can discard the value and
// keep the error.
func DecodeGpuRep(e codec.Envelope, payload []byte) (GpuRep, error) {
	return gpuRepCodec{}.Decode(e, payload)
}

// EncodeAudioCmd encodes cmd for submission to the audio service.
func EncodeAudioCmd(cmd world.AudioCmd) (codec.Encoded, error) {
	return audioCmdCodec{}.Encode(cmd)
}

// DecodeAudioRep decodes an audio reply record.
func DecodeAudioRep(e codec.Envelope, payload []byte) (world.AudioRep, error) {
	return audioRepCodec{}.Decode(e, payload)
}

// EncodeFsCmd encodes cmd for submission to the filesystem service.
func EncodeFsCmd(cmd world.FsCmd) (codec.Encoded, error) {
	return fsCmdCodec{}.Encode(cmd)
}

// DecodeFsRep decodes an Fs reply record.
func DecodeFsRep(e codec.Envelope, payload []byte) (FsRep, error) {
	return fsRepCodec{}.Decode(e, payload)
}
