// internal/output/writer.go - Output writing implementation
package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"

	"github.com/valpere/crimegrid/internal/tile"
)

// FileWriter writes all output to one file with optional compression
type FileWriter struct {
	formatter   Formatter
	destination Destination
	config      *WriterConfig
}

// NewFileWriter creates a new file-based writer
func NewFileWriter(fs afero.Fs, config *WriterConfig, destination string) (*FileWriter, error) {
	formatter, err := NewFormatter(&FormatterConfig{
		Format:       config.Format,
		Pretty:       config.Pretty,
		IncludeStats: config.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	dest, err := newFileDestination(fs, destination, config.Compression)
	if err != nil {
		return nil, fmt.Errorf("failed to create file destination: %w", err)
	}

	return &FileWriter{
		formatter:   formatter,
		destination: dest,
		config:      config,
	}, nil
}

// Write writes a single encoded tile to the output destination
func (w *FileWriter) Write(t *tile.EncodedTile) error {
	data, err := w.formatter.Format(t)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}

	_, err = w.destination.Write(data)
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	return nil
}

// WriteBatch writes multiple encoded tiles as a batch operation
func (w *FileWriter) WriteBatch(tiles []*tile.EncodedTile) error {
	data, err := w.formatter.FormatBatch(tiles)
	if err != nil {
		return fmt.Errorf("batch formatting failed: %w", err)
	}

	_, err = w.destination.Write(data)
	if err != nil {
		return fmt.Errorf("batch write failed: %w", err)
	}

	return nil
}

// Close closes the writer and underlying destination
func (w *FileWriter) Close() error {
	return w.destination.Close()
}

// Name returns the path actually written, including any .gz suffix
func (w *FileWriter) Name() string {
	return w.destination.Name()
}

// StdoutWriter writes output to a stream, normally standard output
type StdoutWriter struct {
	formatter Formatter
	out       io.Writer
}

// NewStdoutWriter creates a new stream writer
func NewStdoutWriter(out io.Writer, format Format, pretty bool) (*StdoutWriter, error) {
	formatter, err := NewFormatter(&FormatterConfig{
		Format:       format,
		Pretty:       pretty,
		IncludeStats: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	return &StdoutWriter{formatter: formatter, out: out}, nil
}

// Write writes a single tile to the stream
func (w *StdoutWriter) Write(t *tile.EncodedTile) error {
	data, err := w.formatter.Format(t)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}
	return w.emit(data)
}

// WriteBatch writes multiple tiles to the stream
func (w *StdoutWriter) WriteBatch(tiles []*tile.EncodedTile) error {
	data, err := w.formatter.FormatBatch(tiles)
	if err != nil {
		return fmt.Errorf("batch formatting failed: %w", err)
	}
	return w.emit(data)
}

func (w *StdoutWriter) emit(data []byte) error {
	if _, err := w.out.Write(data); err != nil {
		return fmt.Errorf("write to stdout failed: %w", err)
	}

	// Binary tiles get no trailing newline
	if _, ok := w.formatter.(*MVTFormatter); ok {
		return nil
	}
	_, err := w.out.Write([]byte("\n"))
	return err
}

// Close is a no-op for stdout writer
func (w *StdoutWriter) Close() error {
	return nil
}

// MultiFileWriter writes each tile to <baseDir>/<z>/<x>/<y><ext>. It is safe for concurrent use.
type MultiFileWriter struct {
	fs        afero.Fs
	formatter Formatter
	baseDir   string
	config    *WriterConfig

	files int64
	bytes int64
}

// NewMultiFileWriter creates a writer that outputs each tile to a separate file
func NewMultiFileWriter(fs afero.Fs, config *WriterConfig, baseDir string) (*MultiFileWriter, error) {
	formatter, err := NewFormatter(&FormatterConfig{
		Format:       config.Format,
		Pretty:       config.Pretty,
		IncludeStats: config.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	// Ensure base directory exists
	if err := fs.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &MultiFileWriter{
		fs:        fs,
		formatter: formatter,
		baseDir:   baseDir,
		config:    config,
	}, nil
}

// Write writes a single tile to its own file
func (w *MultiFileWriter) Write(t *tile.EncodedTile) error {
	data, err := w.formatter.Format(t)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}

	path := TilePath(w.baseDir, t.Coordinate, w.config.Format, w.config.Compression)
	dest, err := newFileDestination(w.fs, path, w.config.Compression)
	if err != nil {
		return fmt.Errorf("failed to create file destination: %w", err)
	}

	if _, err := dest.Write(data); err != nil {
		dest.Close()
		return fmt.Errorf("write failed: %w", err)
	}
	if err := dest.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}

	atomic.AddInt64(&w.files, 1)
	atomic.AddInt64(&w.bytes, dest.Size())
	return nil
}

// WriteBatch writes each tile in the batch to separate files
func (w *MultiFileWriter) WriteBatch(tiles []*tile.EncodedTile) error {
	for _, t := range tiles {
		if err := w.Write(t); err != nil {
			return fmt.Errorf("failed to write tile %s: %w", t.Coordinate.String(), err)
		}
	}
	return nil
}

// Close is a no-op for multi-file writer
func (w *MultiFileWriter) Close() error {
	return nil
}

// Files returns the number of tile files written
func (w *MultiFileWriter) Files() int64 {
	return atomic.LoadInt64(&w.files)
}

// BytesWritten returns the number of uncompressed bytes written
func (w *MultiFileWriter) BytesWritten() int64 {
	return atomic.LoadInt64(&w.bytes)
}

// TilePath returns the file path of a tile under baseDir
func TilePath(baseDir string, coord *tile.TileCoordinate, format Format, compressed bool) string {
	ext := format.Extension()
	if compressed {
		ext += ".gz"
	}
	return filepath.Join(baseDir, fmt.Sprintf("%d", coord.Z), fmt.Sprintf("%d", coord.X), fmt.Sprintf("%d%s", coord.Y, ext))
}

// fileDestination implements the Destination interface for file output
type fileDestination struct {
	file   afero.File
	writer io.WriteCloser
	name   string
	size   int64
}

// newFileDestination creates a new file destination with optional compression
func newFileDestination(fs afero.Fs, path string, compression bool) (*fileDestination, error) {
	if compression && !strings.HasSuffix(path, ".gz") {
		path += ".gz"
	}

	// Ensure parent directory exists
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	var writer io.WriteCloser = file
	if compression {
		writer = gzip.NewWriter(file)
	}

	return &fileDestination{
		file:   file,
		writer: writer,
		name:   path,
		size:   0,
	}, nil
}

// Write implements io.Writer
func (d *fileDestination) Write(p []byte) (n int, err error) {
	n, err = d.writer.Write(p)
	d.size += int64(n)
	return n, err
}

// Close implements io.Closer
func (d *fileDestination) Close() error {
	if d.writer != io.WriteCloser(d.file) {
		if err := d.writer.Close(); err != nil {
			d.file.Close()
			return err
		}
	}
	return d.file.Close()
}

// Name returns the destination file path
func (d *fileDestination) Name() string {
	return d.name
}

// Size returns the number of bytes written
func (d *fileDestination) Size() int64 {
	return d.size
}

// NewWriter creates the appropriate writer based on configuration.
// An empty destination or "-" selects out.
func NewWriter(fs afero.Fs, out io.Writer, config *WriterConfig, destination string, multiFile bool) (Writer, error) {
	if destination == "" || destination == "-" {
		return NewStdoutWriter(out, config.Format, config.Pretty)
	}

	if multiFile {
		return NewMultiFileWriter(fs, config, destination)
	}

	return NewFileWriter(fs, config, destination)
}
