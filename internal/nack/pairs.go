package nack

import "github.com/pion/rtcp"

// EncodePairs packs a sorted run of missing sequence numbers into RTCP
// NACK pairs (PID + bitmask of up to 16 following losses), the same
// encoding pion/interceptor's nackPairs helper produces.
func EncodePairs(missing []uint16) []rtcp.NackPair {
	if len(missing) == 0 {
		return nil
	}

	pairs := make([]rtcp.NackPair, 0, len(missing))
	pair := rtcp.NackPair{PacketID: missing[0]}
	for _, seq := range missing[1:] {
		delta := seq - pair.PacketID
		if delta > 16 {
			pairs = append(pairs, pair)
			pair = rtcp.NackPair{PacketID: seq}
			continue
		}
		pair.LostPackets |= 1 << (delta - 1)
	}
	pairs = append(pairs, pair)
	return pairs
}

// DecodePairs expands RTCP NACK pairs back into the individual
// sequence numbers an inbound TransportLayerNack is reporting lost,
// consulted by the send side against its RetransmitBuffer.
func DecodePairs(pairs []rtcp.NackPair) []uint16 {
	var seqs []uint16
	for _, p := range pairs {
		seqs = append(seqs, p.PacketID)
		for i := 0; i < 16; i++ {
			if p.LostPackets&(1<<uint(i)) != 0 {
				seqs = append(seqs, p.PacketID+uint16(i)+1)
			}
		}
	}
	return seqs
}

// BuildNACK constructs a compound RTCP NACK packet for mediaSSRC,
// reporting missing as lost, signed by senderSSRC.
func BuildNACK(senderSSRC, mediaSSRC uint32, missing []uint16) *rtcp.TransportLayerNack {
	if len(missing) == 0 {
		return nil
	}
	return &rtcp.TransportLayerNack{
		SenderSSRC: senderSSRC,
		MediaSSRC:  mediaSSRC,
		Nacks:      EncodePairs(missing),
	}
}
