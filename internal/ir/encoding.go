package ir

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// EventStorageAccountName is the account type name used for the discriminator.
const EventStorageAccountName = "EventStorage"

// EventStorageDiscriminator prefixes every encoded EventStorage account.
var EventStorageDiscriminator = AccountDiscriminator(EventStorageAccountName)

// ErrBadDiscriminator is returned when decoding data that is not an EventStorage account.
var ErrBadDiscriminator = errors.New("account discriminator mismatch")

// EncodeEventStorage serializes the account data of s.
//
// Layout (all integers little-endian):
//
//	[8]  discriminator
//	u64  period
//	u32  event count, then per event: u32 length || bytes
//	u32  signer count, then 32 bytes per signer
//	u8   bump
//
// Address and Lamports are account metadata, not account data, and are not encoded.
func EncodeEventStorage(s EventStorage) []byte {
	size := 8 + 8 + 4 + 4 + 1 + len(s.Signers)*PubkeySize
	for _, ev := range s.Events {
		size += 4 + len(ev)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, EventStorageDiscriminator[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, s.Period)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.Events)))
	for _, ev := range s.Events {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ev)))
		buf = append(buf, ev...)
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.Signers)))
	for _, signer := range s.Signers {
		buf = append(buf, signer[:]...)
	}
	buf = append(buf, s.Bump)
	return buf
}

// DecodeEventStorage parses data produced by EncodeEventStorage.
// Trailing bytes after the bump are rejected.
func DecodeEventStorage(data []byte) (EventStorage, error) {
	r := bytes.NewReader(data)

	var disc [8]byte
	if _, err := io.ReadFull(r, disc[:]); err != nil || disc != EventStorageDiscriminator {
		return EventStorage{}, ErrBadDiscriminator
	}

	var s EventStorage
	if err := binary.Read(r, binary.LittleEndian, &s.Period); err != nil {
		return EventStorage{}, fmt.Errorf("decode period: %w", err)
	}

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return EventStorage{}, fmt.Errorf("decode event count: %w", err)
	}
	s.Events = make([][]byte, 0, min(int(n), r.Len()/4))
	for i := uint32(0); i < n; i++ {
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return EventStorage{}, fmt.Errorf("decode event %d length: %w", i, err)
		}
		if int64(size) > int64(r.Len()) {
			return EventStorage{}, fmt.Errorf("decode event %d: length %d exceeds remaining %d bytes", i, size, r.Len())
		}
		ev := make([]byte, size)
		if _, err := io.ReadFull(r, ev); err != nil {
			return EventStorage{}, fmt.Errorf("decode event %d: %w", i, err)
		}
		s.Events = append(s.Events, ev)
	}

	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return EventStorage{}, fmt.Errorf("decode signer count: %w", err)
	}
	if int64(n)*PubkeySize > int64(r.Len()) {
		return EventStorage{}, fmt.Errorf("decode signers: %d signers exceed remaining %d bytes", n, r.Len())
	}
	s.Signers = make([]Pubkey, n)
	for i := range s.Signers {
		if _, err := io.ReadFull(r, s.Signers[i][:]); err != nil {
			return EventStorage{}, fmt.Errorf("decode signer %d: %w", i, err)
		}
	}

	bump, err := r.ReadByte()
	if err != nil {
		return EventStorage{}, fmt.Errorf("decode bump: %w", err)
	}
	s.Bump = bump

	if r.Len() != 0 {
		return EventStorage{}, fmt.Errorf("decode: %d trailing bytes", r.Len())
	}
	return s, nil
}
