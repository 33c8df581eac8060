// Package pfs provides reading and writing of EverQuest PFS archives, the
// container behind .s3d and .eqg files.
package pfs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Faultbox/azone/internal/compress"
	"github.com/Faultbox/azone/pkg/encoding"
)

const (
	pfsMagic     = "PFS "
	pfsVersion   = 0x00020000
	directoryCRC = 0x61580AC9
	headerSize   = 12
	blockHeader  = 8
)

// PFS format errors.
var (
	ErrInvalidPFSMagic       = errors.New("invalid PFS magic: expected 'PFS '")
	ErrUnsupportedPFSVersion = errors.New("unsupported PFS version")
	ErrTruncatedPFSData      = errors.New("truncated PFS data")
	ErrMissingDirectory      = errors.New("PFS filename directory not found")
	ErrFileNotFound          = errors.New("file not found in archive")
)

// Archive represents an opened PFS archive.
type Archive struct {
	r        io.ReaderAt
	size     int64
	closer   io.Closer
	header   Header
	fileList map[string]*Entry
}

// Header contains the PFS file header.
type Header struct {
	DirectoryOffset uint32
	Magic           [4]byte
	Version         uint32
}

// Entry represents a file entry in the archive.
type Entry struct {
	Name   string
	CRC    uint32
	Offset uint32
	Size   uint32 // inflated size
}

// Open opens a PFS archive on disk for reading.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	archive, err := newArchive(file, info.Size())
	if err != nil {
		file.Close()
		return nil, err
	}
	archive.closer = file
	return archive, nil
}

// OpenBytes opens a PFS archive held in memory.
func OpenBytes(data []byte) (*Archive, error) {
	return newArchive(bytes.NewReader(data), int64(len(data)))
}

func newArchive(r io.ReaderAt, size int64) (*Archive, error) {
	archive := &Archive{
		r:        r,
		size:     size,
		fileList: make(map[string]*Entry),
	}

	if err := archive.readHeader(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	if err := archive.readFileTable(); err != nil {
		return nil, fmt.Errorf("reading file table: %w", err)
	}

	return archive, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (a *Archive) readHeader() error {
	var buf [headerSize]byte
	if _, err := a.r.ReadAt(buf[:], 0); err != nil {
		return ErrTruncatedPFSData
	}

	a.header.DirectoryOffset = binary.LittleEndian.Uint32(buf[0:])
	copy(a.header.Magic[:], buf[4:8])
	a.header.Version = binary.LittleEndian.Uint32(buf[8:])

	if string(a.header.Magic[:]) != pfsMagic {
		return ErrInvalidPFSMagic
	}

	if a.header.Version != pfsVersion {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedPFSVersion, a.header.Version)
	}

	return nil
}

func (a *Archive) readFileTable() error {
	var countBuf [4]byte
	if _, err := a.r.ReadAt(countBuf[:], int64(a.header.DirectoryOffset)); err != nil {
		return fmt.Errorf("%w: reading entry count", ErrTruncatedPFSData)
	}
	count := binary.LittleEndian.Uint32(countBuf[:])

	// Each entry is 12 bytes; reject counts the file cannot hold.
	tableStart := int64(a.header.DirectoryOffset) + 4
	if int64(count)*12 > a.size-tableStart {
		return fmt.Errorf("%w: %d entries", ErrTruncatedPFSData, count)
	}

	table := make([]byte, int(count)*12)
	if _, err := a.r.ReadAt(table, tableStart); err != nil {
		return fmt.Errorf("%w: reading entries", ErrTruncatedPFSData)
	}

	var directory *Entry
	entries := make([]*Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		off := i * 12
		entry := &Entry{
			CRC:    binary.LittleEndian.Uint32(table[off:]),
			Offset: binary.LittleEndian.Uint32(table[off+4:]),
			Size:   binary.LittleEndian.Uint32(table[off+8:]),
		}
		if entry.CRC == directoryCRC {
			directory = entry
			continue
		}
		entries = append(entries, entry)
	}

	if directory == nil {
		return ErrMissingDirectory
	}

	dirData, err := a.readEntry(directory)
	if err != nil {
		return fmt.Errorf("reading filename directory: %w", err)
	}

	names, err := parseNames(dirData)
	if err != nil {
		return err
	}

	if len(names) != len(entries) {
		return fmt.Errorf("%w: %d names for %d entries", ErrTruncatedPFSData, len(names), len(entries))
	}

	// Names are stored in the order the data was laid out.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Offset < entries[j].Offset
	})

	for i, entry := range entries {
		entry.Name = encoding.NormalizeArchivePath(names[i])
		a.fileList[entry.Name] = entry
	}

	return nil
}

func parseNames(data []byte) ([]string, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: filename count", ErrTruncatedPFSData)
	}
	count := binary.LittleEndian.Uint32(data)
	offset := 4

	names := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("%w: filename %d length", ErrTruncatedPFSData, i)
		}
		length := int(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
		if length < 0 || offset+length > len(data) {
			return nil, fmt.Errorf("%w: filename %d", ErrTruncatedPFSData, i)
		}
		names = append(names, encoding.TrimNullString(data[offset:offset+length]))
		offset += length
	}
	return names, nil
}

// readEntry inflates the block chain of an entry.
func (a *Archive) readEntry(entry *Entry) ([]byte, error) {
	result := make([]byte, 0, entry.Size)
	pos := int64(entry.Offset)

	var hdr [blockHeader]byte
	for uint32(len(result)) < entry.Size {
		if _, err := a.r.ReadAt(hdr[:], pos); err != nil {
			return nil, fmt.Errorf("%w: block header at %d", ErrTruncatedPFSData, pos)
		}
		deflated := int64(binary.LittleEndian.Uint32(hdr[0:]))
		inflated := binary.LittleEndian.Uint32(hdr[4:])
		pos += blockHeader

		if deflated > a.size-pos || inflated > entry.Size-uint32(len(result)) {
			return nil, fmt.Errorf("%w: block at %d", ErrTruncatedPFSData, pos)
		}

		block := make([]byte, deflated)
		if _, err := a.r.ReadAt(block, pos); err != nil {
			return nil, fmt.Errorf("%w: block data at %d", ErrTruncatedPFSData, pos)
		}
		pos += deflated

		data, err := compress.Inflate(block, int(inflated))
		if err != nil {
			return nil, fmt.Errorf("inflating block: %w", err)
		}
		result = append(result, data...)

		if inflated == 0 {
			break
		}
	}

	if uint32(len(result)) != entry.Size {
		return nil, fmt.Errorf("%w: inflated %d of %d bytes", ErrTruncatedPFSData, len(result), entry.Size)
	}
	return result, nil
}

// List returns all file names in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.fileList))
	for path := range a.fileList {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}

// Contains checks if a file exists.
func (a *Archive) Contains(path string) bool {
	_, ok := a.fileList[encoding.NormalizeArchivePath(path)]
	return ok
}

// Stat returns the entry for a file.
func (a *Archive) Stat(path string) (*Entry, bool) {
	entry, ok := a.fileList[encoding.NormalizeArchivePath(path)]
	return entry, ok
}

// Read reads and inflates a file from the archive.
func (a *Archive) Read(path string) ([]byte, error) {
	entry, ok := a.fileList[encoding.NormalizeArchivePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	return a.readEntry(entry)
}
