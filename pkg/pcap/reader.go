// Package pcap reads raw packets from capture files so they can be fed to an
// analysis program as input records.
package pcap

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/gopacket/pcapgo"
)

// Reader reads packets from a pcap file.
type Reader struct {
	file   *os.File
	reader *pcapgo.Reader
}

// NewReader creates a new pcap reader for the given file path.
func NewReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open pcap file '%s'", filePath)
	}
	reader, err := pcapgo.NewReader(file)
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "failed to read pcap header of '%s'", filePath)
	}
	return &Reader{file: file, reader: reader}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadPackets calls fn with the raw bytes of every packet in capture order.
// It stops at the first error returned by fn.
func (r *Reader) ReadPackets(fn func(data []byte) error) error {
	for {
		data, _, err := r.reader.ReadPacketData()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to read packet")
		}
		if err := fn(data); err != nil {
			return err
		}
	}
}

// ReadAll returns every packet of the file at filePath.
func ReadAll(filePath string) ([][]byte, error) {
	r, err := NewReader(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var packets [][]byte
	err = r.ReadPackets(func(data []byte) error {
		packets = append(packets, data)
		return nil
	})
	return packets, err
}
