// internal/device/thinkgear.go
package device

import (
	"bufio"
	"io"
	"time"

	"github.com/cockroachdb/errors"

	"mindrc-gateway/internal/data"
)

// ThinkGear serial protocol constants.
const (
	syncByte     = 0xAA
	excodeByte   = 0x55
	maxPayload   = 169
	codeSignal   = 0x02
	codeAttn     = 0x04
	codeMed      = 0x05
	codeBlink    = 0x16
	codeRaw      = 0x80
	codeEEGPower = 0x83
	eegPowerLen  = 24
)

// ErrChecksum marks a packet whose checksum did not match its payload.
var ErrChecksum = errors.New("thinkgear: checksum mismatch")

// Decoder splits a ThinkGear byte stream into packet payloads.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the payload of the next packet. On ErrChecksum the packet has
// been consumed and the caller may keep reading.
func (d *Decoder) Next() ([]byte, error) {
	for {
		if err := d.sync(); err != nil {
			return nil, err
		}

		plen, err := d.r.ReadByte()
		for err == nil && plen == syncByte {
			plen, err = d.r.ReadByte()
		}
		if err != nil {
			return nil, err
		}
		if plen > maxPayload {
			continue
		}

		payload := make([]byte, plen)
		if _, err := io.ReadFull(d.r, payload); err != nil {
			return nil, err
		}
		sum, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if checksum(payload) != sum {
			return nil, ErrChecksum
		}
		return payload, nil
	}
}

// sync consumes bytes until two consecutive sync bytes have been read.
func (d *Decoder) sync() error {
	seen := 0
	for seen < 2 {
		b, err := d.r.ReadByte()
		if err != nil {
			return err
		}
		if b == syncByte {
			seen++
		} else {
			seen = 0
		}
	}
	return nil
}

func checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum += b
	}
	return ^sum
}

// ParsePayload converts the data rows of one packet into events. Rows the
// gateway does not use (signal quality, blink, raw wave) are skipped.
func ParsePayload(payload []byte, ts time.Time) ([]data.Event, error) {
	var events []data.Event
	for i := 0; i < len(payload); {
		for i < len(payload) && payload[i] == excodeByte {
			i++
		}
		if i >= len(payload) {
			break
		}
		code := payload[i]
		i++

		vlen := 1
		if code >= 0x80 {
			if i >= len(payload) {
				return events, errors.Newf("thinkgear: truncated row for code 0x%02x", code)
			}
			vlen = int(payload[i])
			i++
		}
		if i+vlen > len(payload) {
			return events, errors.Newf("thinkgear: row 0x%02x wants %d bytes, %d left", code, vlen, len(payload)-i)
		}
		value := payload[i : i+vlen]
		i += vlen

		switch code {
		case codeAttn:
			events = append(events, data.Event{Kind: data.KindAttention, Timestamp: ts, Value: int(value[0])})
		case codeMed:
			events = append(events, data.Event{Kind: data.KindMeditation, Timestamp: ts, Value: int(value[0])})
		case codeEEGPower:
			if len(value) != eegPowerLen {
				return events, errors.Newf("thinkgear: eeg power row has %d bytes", len(value))
			}
			events = append(events, data.Event{Kind: data.KindEEG, Timestamp: ts, EEG: decodePowers(value)})
		case codeSignal, codeBlink, codeRaw:
		}
	}
	return events, nil
}

func decodePowers(v []byte) data.EEGPowers {
	u24 := func(n int) float64 {
		o := n * 3
		return float64(uint32(v[o])<<16 | uint32(v[o+1])<<8 | uint32(v[o+2]))
	}
	return data.EEGPowers{
		Delta:     u24(0),
		Theta:     u24(1),
		AlphaLow:  u24(2),
		AlphaHigh: u24(3),
		BetaLow:   u24(4),
		BetaHigh:  u24(5),
		GammaLow:  u24(6),
		GammaMid:  u24(7),
	}
}
