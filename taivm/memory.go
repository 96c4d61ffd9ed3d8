package taivm

import (
	"encoding/binary"
	"fmt"
)

const PageSize = 64 * 1024

// Memory is a linear byte array shared by all instances of a session.
type Memory struct {
	bytes    []byte
	maxPages uint32
}

func NewMemory(pages, maxPages uint32) (*Memory, error) {
	if maxPages == 0 {
		maxPages = pages
	}
	if pages > maxPages {
		return nil, fmt.Errorf("%w: %d pages, max %d", ErrMemoryLimit, pages, maxPages)
	}
	return &Memory{
		bytes:    make([]byte, int(pages)*PageSize),
		maxPages: maxPages,
	}, nil
}

func (m *Memory) Size() uint32 {
	return uint32(len(m.bytes))
}

func (m *Memory) Pages() uint32 {
	return uint32(len(m.bytes) / PageSize)
}

// Grow adds delta pages and returns the previous page count.
func (m *Memory) Grow(delta uint32) (uint32, error) {
	old := m.Pages()
	if old+delta > m.maxPages {
		return old, fmt.Errorf("%w: grow %d pages from %d, max %d", ErrMemoryLimit, delta, old, m.maxPages)
	}
	bs := make([]byte, int(old+delta)*PageSize)
	copy(bs, m.bytes)
	m.bytes = bs
	return old, nil
}

func (m *Memory) translate(addr, size uint32) ([]byte, error) {
	end := uint64(addr) + uint64(size)
	if end > uint64(len(m.bytes)) {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfBounds, addr, end, len(m.bytes))
	}
	return m.bytes[addr:end], nil
}

func (m *Memory) Read(addr uint32, p []byte) error {
	bs, err := m.translate(addr, uint32(len(p)))
	if err != nil {
		return err
	}
	copy(p, bs)
	return nil
}

func (m *Memory) Write(addr uint32, p []byte) error {
	bs, err := m.translate(addr, uint32(len(p)))
	if err != nil {
		return err
	}
	copy(bs, p)
	return nil
}

func (m *Memory) Read8(addr uint32) (uint8, error) {
	bs, err := m.translate(addr, 1)
	if err != nil {
		return 0, err
	}
	return bs[0], nil
}

func (m *Memory) Write8(addr uint32, v uint8) error {
	bs, err := m.translate(addr, 1)
	if err != nil {
		return err
	}
	bs[0] = v
	return nil
}

func (m *Memory) Read32(addr uint32) (uint32, error) {
	if addr%4 != 0 {
		return 0, fmt.Errorf("%w: read at %d", ErrMisaligned, addr)
	}
	bs, err := m.translate(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(bs), nil
}

func (m *Memory) Write32(addr uint32, v uint32) error {
	if addr%4 != 0 {
		return fmt.Errorf("%w: write at %d", ErrMisaligned, addr)
	}
	bs, err := m.translate(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(bs, v)
	return nil
}

// Snapshot is a copy of a memory prefix.
type Snapshot struct {
	Bytes []byte
}

func (m *Memory) Snapshot(n uint32) (*Snapshot, error) {
	bs, err := m.translate(0, n)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Bytes: append([]byte(nil), bs...),
	}, nil
}

// Restore writes the snapshot back over the prefix it was taken from.
func (m *Memory) Restore(s *Snapshot) error {
	return m.Write(0, s.Bytes)
}
