package records

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// Offsets within the record content, i.e. after the descriptor word.
const (
	offsetFlag    = 0
	offsetType    = 1
	offsetTime    = 2
	offsetDate    = 6
	offsetSystem  = 10
	offsetSubtype = 18

	// HeaderLength is the shortest content that carries type, time, date and system id.
	HeaderLength = 14
	// flag bit indicating the record carries a subtype
	flagSubtype = 0x40
)

// systemNames caches decoded system ids, there are only a handful per input.
type systemNames map[[4]byte]string

func (c systemNames) decode(raw []byte) string {
	var key [4]byte
	copy(key[:], raw)
	if name, ok := c[key]; ok {
		return name
	}
	var sb strings.Builder
	for _, b := range key {
		sb.WriteRune(charmap.CodePage037.DecodeByte(b))
	}
	name := strings.TrimRight(sb.String(), " \x00")
	c[key] = name
	return name
}

// decodeDate converts a packed decimal 0cyydddF date, c being centuries after 1900.
func decodeDate(raw []byte) (time.Time, error) {
	nibbles := make([]int, 0, 8)
	for _, b := range raw[:4] {
		nibbles = append(nibbles, int(b>>4), int(b&0x0f))
	}
	for _, n := range nibbles[:7] {
		if n > 9 {
			return time.Time{}, fmt.Errorf("invalid packed date %x", raw[:4])
		}
	}
	if nibbles[7] < 0x0a {
		return time.Time{}, fmt.Errorf("invalid packed date sign %x", raw[:4])
	}
	year := 1900 + nibbles[1]*100 + nibbles[2]*10 + nibbles[3]
	day := nibbles[4]*100 + nibbles[5]*10 + nibbles[6]
	if day < 1 || day > 366 {
		return time.Time{}, fmt.Errorf("invalid day of year %d", day)
	}
	return time.Date(year, time.January, day, 0, 0, 0, 0, time.UTC), nil
}

// decodeHeader fills the header fields of rec from rec.Data.
func decodeHeader(rec *Record, names systemNames) error {
	data := rec.Data
	if len(data) < HeaderLength {
		return fmt.Errorf("record content of %d bytes is shorter than the %d byte header", len(data), HeaderLength)
	}
	date, err := decodeDate(data[offsetDate:])
	if err != nil {
		return err
	}
	hundredths := binary.BigEndian.Uint32(data[offsetTime:])
	rec.Time = date.Add(time.Duration(hundredths) * 10 * time.Millisecond)
	rec.Kind = int(data[offsetType])
	rec.System = names.decode(data[offsetSystem : offsetSystem+4])
	rec.HasSubtype = false
	rec.Subtype = 0
	if data[offsetFlag]&flagSubtype != 0 && len(data) >= offsetSubtype+2 {
		rec.HasSubtype = true
		rec.Subtype = int(binary.BigEndian.Uint16(data[offsetSubtype:]))
	}
	return nil
}

// EncodeHeader builds the leading record content for the given header values.
// The result is padded to carry a subtype when subtype is not negative.
func EncodeHeader(kind int, subtype int, system string, when time.Time) []byte {
	length := HeaderLength
	if subtype >= 0 {
		length = offsetSubtype + 2
	}
	data := make([]byte, length)
	data[offsetType] = byte(kind)
	midnight := time.Date(when.Year(), when.Month(), when.Day(), 0, 0, 0, 0, when.Location())
	binary.BigEndian.PutUint32(data[offsetTime:], uint32(when.Sub(midnight)/(10*time.Millisecond)))
	century := (when.Year() - 1900) / 100
	yy := when.Year() % 100
	ddd := when.YearDay()
	data[offsetDate] = byte(century)
	data[offsetDate+1] = byte((yy/10)<<4 | yy%10)
	data[offsetDate+2] = byte((ddd/100)<<4 | (ddd/10)%10)
	data[offsetDate+3] = byte((ddd%10)<<4 | 0x0f)
	padded := []byte(fmt.Sprintf("%-4.4s", system))
	for i, r := range padded {
		enc, ok := charmap.CodePage037.EncodeRune(rune(r))
		if !ok {
			enc = 0x40
		}
		data[offsetSystem+i] = enc
	}
	if subtype >= 0 {
		data[offsetFlag] |= flagSubtype
		binary.BigEndian.PutUint16(data[offsetSubtype:], uint16(subtype))
	}
	return data
}
