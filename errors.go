package mp4

import (
	"errors"
	"fmt"
)

// Sentinel errors with no associated payload.
var (
	// ErrUnexpectedEos is returned when a peek or read could not obtain
	// the requested number of bytes from the underlying source.
	ErrUnexpectedEos = errors.New("mp4: unexpected end of stream")

	// ErrInvalidUtf8 reports a text field that is not valid UTF-8.
	// ReadHdlrName returns the hdlr name bytes without validating them, so
	// no function in this package returns this error.
	ErrInvalidUtf8 = errors.New("mp4: invalid utf-8")

	// ErrMissingCodec is returned by Muxer.AddTrack for a sample entry kind
	// it cannot write (anything other than AVC or VP9), and by
	// Track.Descriptor when no sample entry was recognized for the track.
	ErrMissingCodec = errors.New("mp4: track has no codec configured")

	// ErrMissingInfo is returned by the mux driver when WriteHeader is
	// called before SetGlobalInfo.
	ErrMissingInfo = errors.New("mp4: global info not set before write_header")

	// ErrInvalidTiming is returned by the mux table builder when a
	// packet carries no duration and no usable dts/pts delta.
	ErrInvalidTiming = errors.New("mp4: packet has no usable timing information")

	// ErrMoovNotFound is returned by the demux driver when a linear scan
	// reaches the end of the source without encountering a moov box.
	ErrMoovNotFound = errors.New("mp4: moov box not found")

	// ErrNoSamples is returned when a track's compiled sample tables
	// describe zero samples, violating the Track invariant.
	ErrNoSamples = errors.New("mp4: track defines no samples")
)

// UnexpectedEosError reports a malformed box header: either the size field
// was the disallowed 0 ("to end of file") or an extended 64-bit size could
// not be read in full.
type UnexpectedEosError struct {
	Type   BoxType
	Offset int
}

func (e *UnexpectedEosError) Error() string {
	return fmt.Sprintf("mp4: box %q at offset %d: unexpected end of stream", e.Type, e.Offset)
}

func (e *UnexpectedEosError) Unwrap() error { return ErrUnexpectedEos }

// InvalidBoxSizeError reports a box whose declared total size is smaller
// than its own header, which the framing layer must treat as fatal.
type InvalidBoxSizeError struct {
	Type      BoxType
	Size      uint64
	HeaderLen int
}

func (e *InvalidBoxSizeError) Error() string {
	return fmt.Sprintf("mp4: box %q: size %d is smaller than header length %d", e.Type, e.Size, e.HeaderLen)
}

// UnexpectedNameError reports that a mandatory-typed read found a box of a
// different type than the one required.
type UnexpectedNameError struct {
	Expected BoxType
	Actual   BoxType
}

func (e *UnexpectedNameError) Error() string {
	return fmt.Sprintf("mp4: expected box %q, found %q", e.Expected, e.Actual)
}

// RequiredBoxNotFoundError reports that a parent box finished without
// collecting a child box that is mandatory for it.
type RequiredBoxNotFoundError struct {
	Parent   BoxType
	Required BoxType
}

func (e *RequiredBoxNotFoundError) Error() string {
	return fmt.Sprintf("mp4: %q has no required %q child", e.Parent, e.Required)
}

// RequiredEitherBoxesNotFoundError reports that a parent box finished
// without collecting either of two mutually-acceptable children (e.g.
// stco/co64).
type RequiredEitherBoxesNotFoundError struct {
	Parent BoxType
	A, B   BoxType
}

func (e *RequiredEitherBoxesNotFoundError) Error() string {
	return fmt.Sprintf("mp4: %q has neither %q nor %q child", e.Parent, e.A, e.B)
}

// NotEnoughBoxesError reports that a container held fewer children of a
// given type than required (e.g. moov with zero trak boxes).
type NotEnoughBoxesError struct {
	Type     BoxType
	Required int
	Found    int
}

func (e *NotEnoughBoxesError) Error() string {
	return fmt.Sprintf("mp4: need at least %d %q box(es), found %d", e.Required, e.Type, e.Found)
}

// UnexpectedTagError reports a descriptor parse (esds) that found a tag
// other than the one it required at that position.
type UnexpectedTagError struct {
	Expected byte
	Actual   byte
}

func (e *UnexpectedTagError) Error() string {
	return fmt.Sprintf("mp4: expected descriptor tag 0x%02x, found 0x%02x", e.Expected, e.Actual)
}

// UnsupportedSampleEntryError reports an stsd entry type the codec bridge
// does not know how to translate. It is non-fatal when the track has at
// least one other usable entry.
type UnsupportedSampleEntryError struct {
	Type BoxType
}

func (e *UnsupportedSampleEntryError) Error() string {
	return fmt.Sprintf("mp4: unsupported sample entry %q", e.Type)
}

// UnsupportedCodecError reports that the codec bridge was asked to
// translate a codec identifier it does not implement, or that an abstract
// parameter record described an impossible combination of codec fields
// (e.g. an unknown VP9 profile/bit-depth/chroma-subsampling triple).
type UnsupportedCodecError struct {
	CodecID string
}

func (e *UnsupportedCodecError) Error() string {
	return fmt.Sprintf("mp4: unsupported codec %q", e.CodecID)
}

// MissingCodecFeatureError reports that a VP9 extradata blob was missing
// one of the four required feature IDs (1=profile, 2=level, 3=bit_depth,
// 4=chroma_subsampling).
type MissingCodecFeatureError struct {
	FeatureID byte
}

func (e *MissingCodecFeatureError) Error() string {
	return fmt.Sprintf("mp4: missing codec feature id %d", e.FeatureID)
}
