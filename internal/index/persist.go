package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// binaryMagic identifies a streamid index cache file.
var binaryMagic = [4]byte{'S', 'I', 'D', 'X'}

// binaryVersion is bumped whenever the on-disk layout changes in a way that
// is not backward compatible. ErrVersionMismatch is recoverable: the caller
// rebuilds from the fingerprint source instead of failing.
const binaryVersion uint32 = 1

// ErrVersionMismatch is returned by Load when the file's version does not
// match binaryVersion.
var ErrVersionMismatch = errors.New("index: binary cache version mismatch")

// Save writes ix to path in the versioned binary format: magic, version, W,
// K, N, followed by the row-major key matrix and the two back-pointer
// arrays.
func Save(ix *Index, path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("index: create %s: %w", tmp, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	if _, err := w.Write(binaryMagic[:]); err != nil {
		return err
	}
	if err := writeUint32(w, binaryVersion); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(ix.w)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(ix.k)); err != nil {
		return err
	}
	n := ix.rows.Len()
	if err := writeUint64(w, uint64(n)); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		r := ix.rows.At(i)
		for _, v := range r.Key {
			if err := writeUint32(w, v); err != nil {
				return err
			}
		}
	}
	for i := 0; i < n; i++ {
		if err := writeUint32(w, ix.rows.At(i).VideoIdx); err != nil {
			return err
		}
	}
	for i := 0; i < n; i++ {
		if err := writeUint32(w, ix.rows.At(i).WindowStart); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("index: flush %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads an index from path and rebuilds the k-d tree over the loaded
// rows. Returns ErrVersionMismatch (wrapped) if the file's version tag does
// not match binaryVersion; the caller should treat this as a trigger for a
// full rebuild, not a fatal error.
func Load(path string, leafSize int) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("index: read magic: %w", err)
	}
	if magic != binaryMagic {
		return nil, fmt.Errorf("index: %s is not a streamid index file", path)
	}

	version, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if version != binaryVersion {
		return nil, fmt.Errorf("%w: file=%d want=%d", ErrVersionMismatch, version, binaryVersion)
	}

	w32, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	k32, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	n64, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	w, k, n := int(w32), int(k32), int(n64)

	rows := make([]row, n)
	for i := 0; i < n; i++ {
		key := make([]uint32, k)
		for j := 0; j < k; j++ {
			v, err := readUint32(r)
			if err != nil {
				return nil, err
			}
			key[j] = v
		}
		rows[i].Key = key
	}
	for i := 0; i < n; i++ {
		v, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		rows[i].VideoIdx = v
	}
	for i := 0; i < n; i++ {
		v, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		rows[i].WindowStart = v
	}

	if leafSize <= 0 {
		leafSize = defaultLeafSize
	}
	rs := &memRowStore{rows: rows}
	tree := buildTree(rs, k, leafSize)

	return &Index{rows: rs, tree: tree, w: w, k: k, leafSize: leafSize}, nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
