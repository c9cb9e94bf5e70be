package vectorindex

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/timmy/gallery/internal/logger"
)

var indexMagic = [4]byte{'G', 'V', 'I', 'X'}

const indexVersion uint32 = 1

type indexHeader struct {
	Magic   [4]byte
	Version uint32
	Dim     uint32
	Count   uint32
}

// Snapshot is the full persisted state of an index.
type Snapshot struct {
	Dimension int
	Vectors   [][]float32
	PhotoIDs  []string
}

// Persister loads and saves index snapshots.
type Persister interface {
	// Load returns the stored snapshot, or nil when nothing has been stored yet.
	Load() (*Snapshot, error)
	Save(snap *Snapshot) error
}

// FilePersister stores a snapshot as two sibling files: a binary vector file
// and a JSON array of photo ids in slot order. Each file is replaced atomically.
type FilePersister struct {
	indexPath   string
	mappingPath string
	dimension   int
}

// NewFilePersister creates a persister for the given file pair. dimension is
// reported for a mapping file found without its vector file.
func NewFilePersister(indexPath, mappingPath string, dimension int) *FilePersister {
	return &FilePersister{indexPath: indexPath, mappingPath: mappingPath, dimension: dimension}
}

// Save writes the vector file then the mapping file.
func (p *FilePersister) Save(snap *Snapshot) error {
	if len(snap.Vectors) != len(snap.PhotoIDs) {
		return fmt.Errorf("snapshot has %d vectors and %d ids", len(snap.Vectors), len(snap.PhotoIDs))
	}
	if err := writeAtomic(p.indexPath, func(w io.Writer) error {
		return writeVectors(w, snap.Dimension, snap.Vectors)
	}); err != nil {
		return fmt.Errorf("write index file: %w", err)
	}
	if err := writeAtomic(p.mappingPath, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(snap.PhotoIDs)
	}); err != nil {
		return fmt.Errorf("write mapping file: %w", err)
	}
	return nil
}

// Load reads both files. When their lengths disagree, both are truncated to
// the shorter one and a warning is logged.
func (p *FilePersister) Load() (*Snapshot, error) {
	dim, vectors, indexFound, err := p.loadVectors()
	if err != nil {
		return nil, err
	}
	ids, mappingFound, err := p.loadMapping()
	if err != nil {
		return nil, err
	}
	if !indexFound && !mappingFound {
		return nil, nil
	}

	if len(vectors) != len(ids) {
		n := len(vectors)
		if len(ids) < n {
			n = len(ids)
		}
		logger.GetDefault().WithFields(logger.Fields{
			"index_count":   len(vectors),
			"mapping_count": len(ids),
			logger.FieldSize: n,
		}).Warnf("Index and mapping files disagree, truncating to %d entries", n)
		vectors = vectors[:n]
		ids = ids[:n]
	}

	return &Snapshot{Dimension: dim, Vectors: vectors, PhotoIDs: ids}, nil
}

func (p *FilePersister) loadVectors() (int, [][]float32, bool, error) {
	f, err := os.Open(p.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return p.dimension, [][]float32{}, false, nil
		}
		return 0, nil, false, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, nil, false, fmt.Errorf("stat index file: %w", err)
	}

	r := bufio.NewReader(f)
	var header indexHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return 0, nil, false, fmt.Errorf("read index header: %w", err)
	}
	if header.Magic != indexMagic {
		return 0, nil, false, fmt.Errorf("index file %s: bad magic", p.indexPath)
	}
	if header.Version != indexVersion {
		return 0, nil, false, fmt.Errorf("index file %s: unsupported version %d", p.indexPath, header.Version)
	}

	if header.Dim == 0 {
		return 0, nil, false, fmt.Errorf("index file %s: zero dimension", p.indexPath)
	}

	// rows the file can actually hold bound every allocation below
	dim := int(header.Dim)
	rowBytes := int64(dim) * 4
	payload := info.Size() - int64(binary.Size(header))
	rows := int64(header.Count)
	if available := payload / rowBytes; available < rows {
		logger.Warn("Index file %s holds %d of %d rows", p.indexPath, available, header.Count)
		rows = available
	}
	if rows <= 0 {
		return dim, [][]float32{}, true, nil
	}

	vectors := make([][]float32, 0, rows)
	buf := make([]byte, rowBytes)
	for i := int64(0); i < rows; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				logger.Warn("Index file %s ends after %d of %d rows", p.indexPath, i, header.Count)
				break
			}
			return 0, nil, false, fmt.Errorf("read vector %d: %w", i, err)
		}
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	return dim, vectors, true, nil
}

func (p *FilePersister) loadMapping() ([]string, bool, error) {
	data, err := os.ReadFile(p.mappingPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, false, nil
		}
		return nil, false, fmt.Errorf("read mapping file: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false, fmt.Errorf("decode mapping file: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, true, nil
}

func writeVectors(w io.Writer, dim int, vectors [][]float32) error {
	header := indexHeader{indexMagic, indexVersion, uint32(dim), uint32(len(vectors))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	for _, vec := range vectors {
		if _, err := w.Write(float32SliceToBytes(vec)); err != nil {
			return err
		}
	}
	return nil
}

// writeAtomic writes to a temp file in the target directory and renames it into place.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
