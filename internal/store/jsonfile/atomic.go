package jsonfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Swappable so tests can simulate a crash or a filesystem without rename.
var (
	rename         = os.Rename
	afterTempWrite = func(tmpPath string) error { return nil }
)

// writeFileAtomic replaces path with data via a temp file in the same
// directory. Readers see either the old or the new file, never a mix.
func writeFileAtomic(path string, data []byte, log *slog.Logger) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := afterTempWrite(tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := rename(tmpPath, path); err != nil {
		log.Warn("atomic rename failed, falling back to degraded overwrite",
			"path", path,
			"err", err,
		)
		return overwriteFromTemp(tmpPath, path)
	}

	syncDir(dir)
	return nil
}

// overwriteFromTemp is the degraded path: it is not crash safe, the
// destination can be left truncated if the process dies mid-write.
func overwriteFromTemp(tmpPath, path string) error {
	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return fmt.Errorf("read temp file: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("overwrite %s: %w", path, err)
	}

	if err := os.Remove(tmpPath); err != nil {
		return fmt.Errorf("remove temp file: %w", err)
	}
	return nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
