package parsers

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"ledgermerge/pkg/errors"
	"ledgermerge/pkg/logger"
)

// BackupSuffix is appended to the previous file when a backup is kept
const BackupSuffix = ".bak"

// WriteOptions controls WriteCSV
type WriteOptions struct {
	Delimiter rune
	// Encoding defaults to UTF-8
	Encoding Encoding
	// Backup keeps the previous content of the file next to it with BackupSuffix
	Backup bool
}

// WriteCSV writes rows to filePath as delimited text. The content is
// written to a temporary file in the same directory and renamed over the
// target, so readers never observe a partial file.
func WriteCSV(filePath string, rows [][]string, opts WriteOptions) (err error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}
	log := logger.GetGlobalLogger().WithComponent("writer").WithField("file_path", filePath)

	dir := filepath.Dir(filePath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return errors.FileError(errors.CodeWriteFailed, filePath, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	var sink io.Writer = tmp
	var encoder *transform.Writer
	if opts.Encoding == EncodingWindows1252 {
		encoder = transform.NewWriter(tmp, charmap.Windows1252.NewEncoder())
		sink = encoder
	}

	writer := csv.NewWriter(sink)
	writer.Comma = opts.Delimiter
	if err = writer.WriteAll(rows); err != nil {
		return errors.FileError(errors.CodeWriteFailed, filePath, err)
	}
	if encoder != nil {
		if err = encoder.Close(); err != nil {
			return errors.FileError(errors.CodeWriteFailed, filePath, err)
		}
	}
	if err = tmp.Sync(); err != nil {
		return errors.FileError(errors.CodeWriteFailed, filePath, err)
	}
	if err = tmp.Close(); err != nil {
		return errors.FileError(errors.CodeWriteFailed, filePath, err)
	}

	backupPath := filePath + BackupSuffix
	backedUp := false
	if opts.Backup {
		if _, statErr := os.Stat(filePath); statErr == nil {
			if err = os.Rename(filePath, backupPath); err != nil {
				return errors.FileError(errors.CodeWriteFailed, backupPath, err)
			}
			backedUp = true
			log.WithField("backup_path", backupPath).Debug("Kept previous file")
		}
	}

	if err = os.Rename(tmpPath, filePath); err != nil {
		if backedUp {
			if restoreErr := os.Rename(backupPath, filePath); restoreErr != nil {
				log.WithError(restoreErr).Error("Failed to restore previous file from backup")
			}
		}
		return errors.FileError(errors.CodeWriteFailed, filePath, err)
	}

	log.WithFields(logger.Fields{
		"rows":   len(rows),
		"backup": backedUp,
	}).Debug("Wrote delimited file")
	return nil
}
