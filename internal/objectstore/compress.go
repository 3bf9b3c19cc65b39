package objectstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// CompressFile writes a zstd-compressed copy of src to dst.
func CompressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("compress: open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("compress: create dest: %w", err)
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("compress: create encoder: %w", err)
	}
	if _, err := io.Copy(enc, in); err != nil {
		_ = enc.Close()
		return fmt.Errorf("compress: copy: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("compress: close encoder: %w", err)
	}
	return out.Sync()
}

// DecompressToFile streams zstd data from r into dst. The file appears
// under dst only once it is complete.
func DecompressToFile(r io.Reader, dst string) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("decompress: create decoder: %w", err)
	}
	defer dec.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".part-*")
	if err != nil {
		return fmt.Errorf("decompress: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, dec); err != nil {
		tmp.Close()
		return fmt.Errorf("decompress: copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("decompress: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("decompress: rename: %w", err)
	}
	return nil
}
