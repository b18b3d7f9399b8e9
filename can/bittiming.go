package can

import (
	"ecusim/errcode"
	"ecusim/x/mathx"
)

// BitTiming is a nominal bit timing. Seg1 includes the propagation
// segment; one bit is 1+Seg1+Seg2 time quanta.
type BitTiming struct {
	Prescaler uint16
	Seg1      uint8
	Seg2      uint8
	SJW       uint8
}

const (
	minTQ          = 8
	maxTQ          = 25
	maxPrescaler   = 1024
	maxSeg1        = 16
	maxSeg2        = 8
	samplePointPPM = 875 // per mille
)

func (b BitTiming) Quanta() uint32 { return 1 + uint32(b.Seg1) + uint32(b.Seg2) }

// Bitrate returns the bit rate this timing yields at clockHz.
func (b BitTiming) Bitrate(clockHz uint32) uint32 {
	if b.Prescaler == 0 {
		return 0
	}
	return clockHz / (uint32(b.Prescaler) * b.Quanta())
}

// SamplePoint returns the sample point in per mille of the bit.
func (b BitTiming) SamplePoint() uint32 {
	return (1 + uint32(b.Seg1)) * 1000 / b.Quanta()
}

// ComputeBitTiming finds an exact timing for bitrate at clockHz with
// 8..25 quanta per bit and a sample point as close to 87.5% as possible.
func ComputeBitTiming(clockHz, bitrate uint32) (BitTiming, error) {
	if bitrate == 0 || clockHz < bitrate*minTQ {
		return BitTiming{}, errcode.NoBitTiming
	}
	var best BitTiming
	bestDiff := uint32(1 << 31)
	for tq := uint32(maxTQ); tq >= minTQ; tq-- {
		if clockHz%(bitrate*tq) != 0 {
			continue
		}
		presc := clockHz / (bitrate * tq)
		if presc < 1 || presc > maxPrescaler {
			continue
		}
		seg2 := mathx.Clamp(mathx.RoundDiv(tq*(1000-samplePointPPM), 1000), 1, maxSeg2)
		seg1 := tq - 1 - seg2
		if seg1 < 1 || seg1 > maxSeg1 {
			continue
		}
		bt := BitTiming{
			Prescaler: uint16(presc),
			Seg1:      uint8(seg1),
			Seg2:      uint8(seg2),
			SJW:       uint8(min(seg2, 4)),
		}
		// Ties keep the larger quanta count found first.
		if d := mathx.AbsDiff(bt.SamplePoint(), samplePointPPM); d < bestDiff {
			best, bestDiff = bt, d
		}
	}
	if best.Prescaler == 0 {
		return BitTiming{}, errcode.NoBitTiming
	}
	return best, nil
}
