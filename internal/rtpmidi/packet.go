package rtpmidi

import "github.com/mattjbishop/rtpmidi/internal/protocol"

// EncodePacket serializes a full RTP-MIDI datagram: the 12-byte RTP header
// followed by the command section for events. It never produces a
// datagram longer than protocol.PacketBuffer; events that would overflow
// it are dropped and encoded reports how many of events actually made it
// onto the wire.
func EncodePacket(hdr Header, events []Event, epnTxShort bool) (packet []byte, encoded int) {
	buf := hdr.Encode(make([]byte, 0, protocol.PacketBuffer))
	return EncodeEvents(buf, events, epnTxShort, protocol.PacketBuffer)
}

// DecodePacket splits frame into its RTP header and decoded events.
func DecodePacket(frame []byte) (Header, []Event, error) {
	hdr, err := DecodeHeader(frame)
	if err != nil {
		return Header{}, nil, err
	}
	events, err := DecodeEvents(frame[HeaderLen:])
	if err != nil {
		return Header{}, nil, err
	}
	return hdr, events, nil
}
