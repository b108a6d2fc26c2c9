package fc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Retention policy: audit entries older than this many days are trimmed, and
// the run history is capped when no max_history_records setting overrides it.
const (
	logRetentionDays  = 30
	defaultHistoryCap = 1000
)

// Maintain runs one housekeeping pass: trims old audit entries, caps the run
// history, then compacts the store. Returns ErrMaintenanceRunning when
// another pass is already in flight.
func (s *Service) Maintain() error {
	if !s.maintMu.TryLock() {
		return ErrMaintenanceRunning
	}
	defer s.maintMu.Unlock()

	cutoff := s.clock.Now().AddDate(0, 0, -logRetentionDays)
	trimmedLogs, err := s.store.TrimActivityLog(cutoff)
	if err != nil {
		s.audit(ActionMaintenance, "trimming activity log failed", "", false, err.Error())
		return fmt.Errorf("trimming activity log: %w", err)
	}

	trimmedRuns, err := s.store.TrimComparisons(s.historyCap())
	if err != nil {
		s.audit(ActionMaintenance, "trimming comparison history failed", "", false, err.Error())
		return fmt.Errorf("trimming comparison history: %w", err)
	}

	// Compaction depends on the deletes above, so it runs strictly after them.
	if err := s.store.Vacuum(); err != nil {
		s.audit(ActionMaintenance, "compaction failed", "", false, err.Error())
		return fmt.Errorf("compacting store: %w", err)
	}

	details := fmt.Sprintf("maintenance complete: %d log entries and %d runs trimmed", trimmedLogs, trimmedRuns)
	s.audit(ActionMaintenance, details, "", true, "")
	s.logger.Info("maintenance complete", "trimmed_logs", trimmedLogs, "trimmed_runs", trimmedRuns)
	return nil
}

// historyCap reads the max_history_records setting, falling back to the
// built-in cap when absent or unparsable.
func (s *Service) historyCap() int {
	value, ok, err := s.store.Setting("max_history_records")
	if err != nil || !ok {
		return defaultHistoryCap
	}
	cap, err := strconv.Atoi(value)
	if err != nil || cap <= 0 {
		s.logger.Warn("ignoring invalid max_history_records setting", "value", value)
		return defaultHistoryCap
	}
	return cap
}

// Backup snapshots the live store to a timestamped sibling file. When an
// encryptor is configured the snapshot is encrypted and the plaintext copy
// removed; when a vault is configured the result is pushed off-site
// best-effort. Returns the local backup path.
func (s *Service) Backup() (string, error) {
	name := fmt.Sprintf("backup_%d.db", s.clock.Now().UnixMilli())
	dest := filepath.Join(filepath.Dir(s.store.Path()), name)

	if err := s.store.BackupTo(dest); err != nil {
		s.audit(ActionBackup, "backup failed", "", false, err.Error())
		return "", fmt.Errorf("backing up store: %w", err)
	}

	if s.encryptor != nil && s.encryptor.IsConfigured() {
		encrypted, err := s.encryptBackup(dest)
		if err != nil {
			s.audit(ActionBackup, "backup encryption failed", "", false, err.Error())
			return "", fmt.Errorf("encrypting backup: %w", err)
		}
		dest = encrypted
		name += ".age"
	}

	if s.vault != nil {
		if err := s.pushBackup(name, dest); err != nil {
			s.logger.Warn("pushing backup to vault", "name", name, "error", err)
		}
	}

	s.audit(ActionBackup, fmt.Sprintf("backup created: %s", dest), "", true, "")
	s.logger.Info("backup created", "path", dest)
	return dest, nil
}

// encryptBackup encrypts path to path+".age" and removes the plaintext file.
func (s *Service) encryptBackup(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	encPath := path + ".age"
	dst, err := os.Create(encPath)
	if err != nil {
		return "", err
	}

	if err := s.encryptor.Encrypt(src, dst); err != nil {
		dst.Close()
		os.Remove(encPath)
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}

	src.Close()
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("removing plaintext backup: %w", err)
	}
	return encPath, nil
}

// pushBackup uploads a finished backup file to the configured vault.
func (s *Service) pushBackup(name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return s.vault.PutBackup(name, f, info.Size())
}

// Statistics returns the aggregate maintenance view of the store.
func (s *Service) Statistics() (*Statistics, error) {
	return s.store.Statistics()
}

// Wipe deletes every row from every table, resets identity counters and
// compacts the store. The one path where reference files are hard-deleted;
// dependent runs cascade with them.
func (s *Service) Wipe() error {
	if err := s.store.Wipe(); err != nil {
		s.audit(ActionClean, "wipe failed", "", false, err.Error())
		return fmt.Errorf("wiping store: %w", err)
	}
	s.audit(ActionClean, "store wiped", "", true, "")
	s.logger.Info("store wiped")
	return nil
}
