// Package checkpoint persists catalog snapshots during a translation
// run. Snapshots go to timestamped backup files; the canonical output
// path is only ever replaced atomically with the content of a fully
// written backup, so an interrupt can never leave it half-written.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BemoBit/po-translator/logger"
	"github.com/BemoBit/po-translator/pofile"
)

// Error reports a checkpoint attempt that could not be persisted
// anywhere, neither to a backup nor to the canonical path.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("checkpoint lost: writing %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Manager writes checkpoints for one canonical output path.
type Manager struct {
	outputPath string
	seq        int
	lastBackup string
}

// NewManager creates a checkpoint manager for the given output path.
func NewManager(outputPath string) *Manager {
	return &Manager{outputPath: outputPath}
}

// LastBackup returns the most recently written backup path, empty
// before the first checkpoint.
func (m *Manager) LastBackup() string { return m.lastBackup }

// Count returns how many checkpoints have been attempted.
func (m *Manager) Count() int { return m.seq }

// Checkpoint writes the catalog to a new timestamped backup file. With
// final set it additionally promotes the backup to the canonical path
// and prunes all but the newest backup. When the backup write fails it
// falls back to writing the canonical path directly; only if that also
// fails is the checkpoint reported lost.
func (m *Manager) Checkpoint(cat *pofile.File, final bool) error {
	backup := m.nextBackupPath()

	if err := cat.Save(backup); err != nil {
		logger.Warnf("checkpoint: backup write failed (%v), writing output directly", err)
		if werr := m.writeCanonical(cat); werr != nil {
			return &Error{Path: m.outputPath, Err: werr}
		}
		return nil
	}
	m.lastBackup = backup

	if final {
		if err := m.promote(backup); err != nil {
			return &Error{Path: m.outputPath, Err: err}
		}
		m.prune()
	}
	return nil
}

// FinalizeAsync runs a final checkpoint in the background and returns
// a channel that receives its outcome. The write itself always runs to
// completion once started; the caller only chooses how long to wait.
func (m *Manager) FinalizeAsync(cat *pofile.File) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- m.Checkpoint(cat, true)
	}()
	return done
}

// SaveCanonical atomically writes the catalog straight to the
// canonical path, bypassing backups. Used when there is nothing to
// translate and the catalog is persisted unchanged.
func (m *Manager) SaveCanonical(cat *pofile.File) error {
	return m.writeCanonical(cat)
}

// nextBackupPath builds "<base>_backup_<timestamp>_<seq><ext>" next to
// the output file. The sequence number disambiguates checkpoints that
// land within the same second.
func (m *Manager) nextBackupPath() string {
	dir := filepath.Dir(m.outputPath)
	base := filepath.Base(m.outputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	m.seq++
	ts := time.Now().Format("20060102_150405")
	return filepath.Join(dir, fmt.Sprintf("%s_backup_%s_%03d%s", stem, ts, m.seq, ext))
}

// promote copies a fully written backup over the canonical path via a
// temp file and rename.
func (m *Manager) promote(backup string) error {
	data, err := os.ReadFile(backup)
	if err != nil {
		return fmt.Errorf("reading backup: %w", err)
	}
	return replaceFile(m.outputPath, data)
}

func (m *Manager) writeCanonical(cat *pofile.File) error {
	var b strings.Builder
	if err := cat.Write(&b); err != nil {
		return err
	}
	return replaceFile(m.outputPath, []byte(b.String()))
}

// prune removes all backups of this output except the newest one.
func (m *Manager) prune() {
	dir := filepath.Dir(m.outputPath)
	base := filepath.Base(m.outputPath)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext) + "_backup_"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var backups []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ext) {
			backups = append(backups, name)
		}
	}
	if len(backups) < 2 {
		return
	}
	// Names embed timestamp plus sequence, so they sort newest-last.
	sort.Strings(backups)
	for _, name := range backups[:len(backups)-1] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			logger.Debugf("checkpoint: cannot remove old backup %s: %v", name, err)
		}
	}
}

// replaceFile atomically replaces path with data.
func replaceFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
