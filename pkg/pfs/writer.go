package pfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Faultbox/azone/internal/compress"
	"github.com/Faultbox/azone/pkg/encoding"
)

// blockSize is the inflated size of each compressed block.
const blockSize = 8192

var crcTable = makeCRCTable()

// makeCRCTable builds the MSB-first CRC-32 table (polynomial 0x04C11DB7)
// used for PFS filename hashes.
func makeCRCTable() [256]uint32 {
	var table [256]uint32
	for i := range table {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ 0x04C11DB7
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}

// NameCRC returns the directory hash of a file name, computed over the
// lower-cased name and its terminating NUL.
func NameCRC(name string) uint32 {
	var crc uint32
	data := append(encoding.UTF8ToWindows1252(encoding.NormalizeArchivePath(name)), 0)
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}

// Writer builds a PFS archive in memory.
type Writer struct {
	files []writerFile
}

type writerFile struct {
	name string
	data []byte
}

// NewWriter creates an empty archive writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Add queues a file. Files are laid out in the order they are added.
func (w *Writer) Add(name string, data []byte) {
	w.files = append(w.files, writerFile{name: name, data: data})
}

// Bytes returns the complete archive.
func (w *Writer) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the archive to out.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	var body bytes.Buffer
	body.Write(make([]byte, headerSize))

	type dirEntry struct {
		crc, offset, size uint32
	}
	entries := make([]dirEntry, 0, len(w.files)+1)

	var names bytes.Buffer
	binary.Write(&names, binary.LittleEndian, uint32(len(w.files)))

	for _, f := range w.files {
		offset := uint32(body.Len())
		if err := writeBlocks(&body, f.data); err != nil {
			return 0, fmt.Errorf("compressing %s: %w", f.name, err)
		}
		entries = append(entries, dirEntry{NameCRC(f.name), offset, uint32(len(f.data))})

		raw := append(encoding.UTF8ToWindows1252(f.name), 0)
		binary.Write(&names, binary.LittleEndian, uint32(len(raw)))
		names.Write(raw)
	}

	dirOffset := uint32(body.Len())
	if err := writeBlocks(&body, names.Bytes()); err != nil {
		return 0, fmt.Errorf("compressing filename directory: %w", err)
	}
	entries = append(entries, dirEntry{directoryCRC, dirOffset, uint32(names.Len())})

	tableOffset := uint32(body.Len())
	binary.Write(&body, binary.LittleEndian, uint32(len(entries)))
	for _, e := range entries {
		binary.Write(&body, binary.LittleEndian, e.crc)
		binary.Write(&body, binary.LittleEndian, e.offset)
		binary.Write(&body, binary.LittleEndian, e.size)
	}

	data := body.Bytes()
	binary.LittleEndian.PutUint32(data[0:], tableOffset)
	copy(data[4:8], pfsMagic)
	binary.LittleEndian.PutUint32(data[8:], pfsVersion)

	n, err := out.Write(data)
	return int64(n), err
}

func writeBlocks(body *bytes.Buffer, data []byte) error {
	for start := 0; start < len(data); start += blockSize {
		end := min(start+blockSize, len(data))
		chunk := data[start:end]

		dst := make([]byte, len(chunk)+128)
		n, err := compress.Deflate(dst, chunk)
		if err != nil {
			return err
		}
		binary.Write(body, binary.LittleEndian, uint32(n))
		binary.Write(body, binary.LittleEndian, uint32(len(chunk)))
		body.Write(dst[:n])
	}
	return nil
}
