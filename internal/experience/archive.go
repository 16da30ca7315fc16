package experience

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxFileSize is the archive rotation threshold when none is configured
const DefaultMaxFileSize int64 = 16 * 1024 * 1024

// ArchiveConfig configures an episode archive
type ArchiveConfig struct {
	Dir         string
	MaxFileSize int64 // bytes per file before rotating; 0 uses DefaultMaxFileSize
}

// ArchiveStats contains statistics about archive operations
type ArchiveStats struct {
	TotalWritten  int64
	BytesWritten  int64
	WriteErrors   int64
	Files         int
	LastWriteTime time.Time
}

// Archive appends episode records as JSON lines to size-rotated files
type Archive struct {
	config ArchiveConfig
	logger zerolog.Logger

	mu    sync.Mutex
	stats ArchiveStats

	currentFile *os.File
	currentSize int64
	fileIndex   int
}

// NewArchive creates the archive directory and opens the first file lazily
func NewArchive(config ArchiveConfig, logger zerolog.Logger) (*Archive, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	return &Archive{
		config: config,
		logger: logger.With().Str("component", "episode_archive").Logger(),
	}, nil
}

// Write appends records to the current file, rotating when it grows too large
func (a *Archive) Write(ctx context.Context, records ...EpisodeRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		if a.currentFile == nil || a.currentSize >= a.config.MaxFileSize {
			if err := a.rotateFile(); err != nil {
				a.stats.WriteErrors++
				return fmt.Errorf("failed to rotate archive file: %w", err)
			}
		}

		data, err := json.Marshal(rec)
		if err != nil {
			a.stats.WriteErrors++
			return fmt.Errorf("failed to marshal episode %d: %w", rec.Episode, err)
		}

		n, err := a.currentFile.Write(append(data, '\n'))
		if err != nil {
			a.stats.WriteErrors++
			return fmt.Errorf("failed to write episode %d: %w", rec.Episode, err)
		}

		a.currentSize += int64(n)
		a.stats.TotalWritten++
		a.stats.BytesWritten += int64(n)
	}

	if a.currentFile != nil {
		if err := a.currentFile.Sync(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to sync archive file")
		}
	}
	a.stats.LastWriteTime = time.Now()

	return nil
}

// ReadAll returns every archived record in write order
func (a *Archive) ReadAll(ctx context.Context) ([]EpisodeRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ReadArchive(ctx, a.config.Dir)
}

// ReadArchive reads all records under dir without opening an archive for writing
func ReadArchive(ctx context.Context, dir string) ([]EpisodeRecord, error) {
	files, err := filepath.Glob(filepath.Join(dir, "episodes_*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("failed to list archive files: %w", err)
	}
	sort.Strings(files)

	var records []EpisodeRecord
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := readArchiveFile(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		records = append(records, recs...)
	}
	return records, nil
}

func readArchiveFile(filename string) ([]EpisodeRecord, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []EpisodeRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec EpisodeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal episode: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading archive: %w", err)
	}
	return records, nil
}

// rotateFile closes the current file and opens the next one
func (a *Archive) rotateFile() error {
	if a.currentFile != nil {
		if err := a.currentFile.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close previous archive file")
		}
		a.currentFile = nil
	}

	timestamp := time.Now().UTC().Format("20060102_150405")
	var filename string
	for {
		filename = filepath.Join(a.config.Dir, fmt.Sprintf("episodes_%s_%04d.jsonl", timestamp, a.fileIndex))
		a.fileIndex++
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			break
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	a.currentFile = file
	a.currentSize = 0
	a.stats.Files++

	a.logger.Debug().Str("filename", filename).Msg("Rotated to new archive file")
	return nil
}

// Close flushes and closes the current file
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.currentFile == nil {
		return nil
	}
	err := a.currentFile.Close()
	a.currentFile = nil
	return err
}

// Stats returns archive statistics
func (a *Archive) Stats() ArchiveStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
