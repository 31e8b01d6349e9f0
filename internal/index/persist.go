package index

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// On-disk layout: two companion files in one directory. index.f32 holds all
// vectors as little-endian float32 in insertion order; index.jsonl holds one
// metadata record per line in the same order. The dimension is recovered as
// floatCount / entryCount on load.
const (
	vectorFile = "index.f32"
	metaFile   = "index.jsonl"
)

// Save writes both companion files to dir. Each file is written to a
// temporary sibling and renamed into place so concurrent loaders never see a
// torn pair.
func (ix *Index) Save(dir string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir %s: %w", dir, err)
	}

	vecPath := filepath.Join(dir, vectorFile)
	if err := writeAtomic(vecPath, func(f *os.File) error {
		bw := bufio.NewWriter(f)
		buf := make([]byte, 4)
		for _, v := range ix.vectors {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
		return bw.Flush()
	}); err != nil {
		return fmt.Errorf("write vector file: %w", err)
	}

	metaPath := filepath.Join(dir, metaFile)
	if err := writeAtomic(metaPath, func(f *os.File) error {
		bw := bufio.NewWriter(f)
		for _, m := range ix.metas {
			line, err := json.Marshal(m)
			if err != nil {
				return err
			}
			if _, err := bw.Write(line); err != nil {
				return err
			}
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
		return bw.Flush()
	}); err != nil {
		return fmt.Errorf("write metadata file: %w", err)
	}

	return nil
}

// Load reads the companion pair from dir into a fresh index. A missing or
// corrupt pair yields ErrIndexUnavailable; callers treat that as "no
// documents yet".
func Load(dir string) (*Index, error) {
	metas, err := loadMetas(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, err
	}
	vectors, dim, err := loadVectors(filepath.Join(dir, vectorFile), len(metas))
	if err != nil {
		return nil, err
	}
	return &Index{dim: dim, vectors: vectors, metas: metas}, nil
}

func loadMetas(path string) ([]Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIndexUnavailable, path, err)
	}
	defer f.Close()

	var metas []Meta
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var m Meta
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, fmt.Errorf("%w: invalid metadata line: %v", ErrIndexUnavailable, err)
		}
		metas = append(metas, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrIndexUnavailable, path, err)
	}
	return metas, nil
}

func loadVectors(path string, entries int) ([]float32, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: open %s: %v", ErrIndexUnavailable, path, err)
	}
	if len(data)%4 != 0 {
		return nil, 0, fmt.Errorf("%w: vector file size %d not a float32 multiple", ErrIndexUnavailable, len(data))
	}
	count := len(data) / 4
	if entries == 0 {
		if count != 0 {
			return nil, 0, fmt.Errorf("%w: %d vectors with no metadata", ErrIndexUnavailable, count)
		}
		return nil, 0, nil
	}
	if count == 0 {
		return nil, 0, fmt.Errorf("%w: %d metadata entries with no vectors", ErrIndexUnavailable, entries)
	}
	if count%entries != 0 {
		return nil, 0, fmt.Errorf("%w: %d floats do not divide into %d entries", ErrIndexUnavailable, count, entries)
	}
	dim := count / entries
	vectors := make([]float32, count)
	for i := 0; i < count; i++ {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}
	return vectors, dim, nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
