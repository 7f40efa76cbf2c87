package channel

import "github.com/pkg/errors"

// ErrMessageTooLarge is returned by SendChannel.GetPacket when a queued
// frame exceeds protocol.MaxFramePayload bytes.
var ErrMessageTooLarge = errors.New("channel: message frame exceeds MTU budget")

// ErrBufferTooShort is returned by ParseChannelPacket when the datagram is
// too short to contain a sequenced header.
var ErrBufferTooShort = errors.New("channel: datagram shorter than sequenced header")

// ErrNotSequencedChannel is returned by ParseChannelPacket when the leading
// byte names a control channel rather than one of the three reliable ones.
var ErrNotSequencedChannel = errors.New("channel: leading byte is a control channel id")
