package fc

import (
	"fmt"
	"sync"
)

// Service is the orchestration layer the shell talks to. It coordinates the
// catalog store and the file store, and enforces the audit contract: every
// catalogued mutation records exactly one activity entry, success or failure.
type Service struct {
	store     Store
	files     FileStore
	vault     Vault     // optional off-site backup target, may be nil
	encryptor Encryptor // optional backup encryption, may be nil
	logger    Logger
	clock     Clock

	// At most one maintenance pass may be in flight, whether triggered by
	// the scheduler or on demand.
	maintMu sync.Mutex
}

// NewService creates a Service with the provided dependencies.
// vault and encryptor may be nil when no off-site target or encryption is
// configured.
func NewService(store Store, files FileStore, vault Vault, encryptor Encryptor, logger Logger, clock Clock) *Service {
	return &Service{
		store:     store,
		files:     files,
		vault:     vault,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
	}
}

// audit appends one activity entry. A failure to record the entry is logged
// as a warning; it never fails the operation that produced it.
func (s *Service) audit(action, details, fileName string, success bool, errMessage string) {
	_, err := s.store.LogActivity(ActivityEntry{
		Action:       action,
		Details:      details,
		FileName:     fileName,
		Success:      success,
		ErrorMessage: errMessage,
	})
	if err != nil {
		s.logger.Warn("recording activity entry", "action", action, "error", err)
	}
}

// AddReferenceFile ingests uploaded bytes into managed storage and catalogs
// the result. Ingest happens before cataloging, so an IO failure leaves no
// partial catalog entry. A catalog failure after a successful ingest leaves an
// orphaned body behind; it is never served and only wastes its file size.
func (s *Service) AddReferenceFile(data []byte, originalName string, size int64, mediaType, description, tags string) (*ReferenceFile, error) {
	meta, err := s.files.SaveReferenceFile(data, originalName, size, mediaType)
	if err != nil {
		s.audit(ActionReferenceAdded, fmt.Sprintf("ingest failed: %s", originalName), originalName, false, err.Error())
		return nil, fmt.Errorf("ingesting reference file: %w", err)
	}

	id, err := s.store.AddReferenceFile(meta, description, tags)
	if err != nil {
		s.audit(ActionReferenceAdded, fmt.Sprintf("cataloging failed: %s", meta.Name), meta.Name, false, err.Error())
		return nil, fmt.Errorf("cataloging reference file: %w", err)
	}

	s.audit(ActionReferenceAdded, fmt.Sprintf("reference file added: %s", meta.Name), meta.Name, true, "")
	s.logger.Info("reference file added", "id", id, "name", meta.Name, "rows", meta.RowCount, "columns", meta.ColumnCount)

	ref, err := s.store.GetReferenceFile(id)
	if err != nil {
		return nil, fmt.Errorf("loading reference file %d: %w", id, err)
	}
	return ref, nil
}

// ListReferenceFiles returns active catalog entries, newest upload first.
func (s *Service) ListReferenceFiles() ([]ReferenceFile, error) {
	return s.store.ListReferenceFiles()
}

// RemoveReferenceFile soft-deletes a catalog entry. The physical body is
// removed best-effort; a failure there never blocks the soft delete.
// Returns the number of affected catalog rows.
func (s *Service) RemoveReferenceFile(id int64) (int64, error) {
	ref, err := s.store.GetReferenceFile(id)
	if err != nil {
		return 0, fmt.Errorf("resolving reference file %d: %w", id, err)
	}

	fileName := "unknown file"
	if ref != nil {
		fileName = ref.Name
		if !s.files.DeleteReferenceFile(ref.Name) {
			s.logger.Warn("could not remove reference file body", "name", ref.Name)
		}
	}

	affected, err := s.store.SoftDeleteReferenceFile(id)
	if err != nil {
		s.audit(ActionReferenceDeleted, fmt.Sprintf("delete failed: %s", fileName), fileName, false, err.Error())
		return 0, fmt.Errorf("deleting reference file %d: %w", id, err)
	}

	s.audit(ActionReferenceDeleted, fmt.Sprintf("reference file deleted: %s", fileName), fileName, true, "")
	return affected, nil
}

// SaveComparison persists one comparison run. When the run points at a
// catalogued reference file, that file's usage bookkeeping is updated; a
// failure there degrades to a warning since the run itself is already saved.
func (s *Service) SaveComparison(run *ComparisonRun) (int64, error) {
	id, err := s.store.SaveComparison(run)
	if err != nil {
		s.audit(ActionComparisonSaved, fmt.Sprintf("save failed: %s", run.CompareFileName), run.CompareFileName, false, err.Error())
		return 0, fmt.Errorf("saving comparison: %w", err)
	}

	if run.ReferenceFileID != nil {
		if _, err := s.store.TouchReferenceUsage(*run.ReferenceFileID); err != nil {
			s.logger.Warn("updating reference usage", "id", *run.ReferenceFileID, "error", err)
		}
	}

	s.audit(ActionComparisonSaved, fmt.Sprintf("comparison saved: %s", run.CompareFileName), run.CompareFileName, true, "")
	return id, nil
}

// ComparisonHistory returns a page of runs, newest first. limit defaults to 50.
func (s *Service) ComparisonHistory(limit, offset int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ComparisonHistory(limit, offset)
}

// ComparisonDetails returns one run with its payloads. ErrNotFound when the
// id was never saved.
func (s *Service) ComparisonDetails(id int64) (*ComparisonDetails, error) {
	return s.store.ComparisonDetails(id)
}

// ExportComparison renders a stored run's result payload into the given
// format and flips the run's export status.
func (s *Service) ExportComparison(id int64, format string) (string, error) {
	details, err := s.store.ComparisonDetails(id)
	if err != nil {
		return "", err
	}
	if details.Result == nil {
		return "", fmt.Errorf("comparison %d has no stored result payload", id)
	}

	baseName := fmt.Sprintf("comparison_%d", id)
	path, err := s.files.ExportReport(details.Result, baseName, format)
	if err != nil {
		return "", fmt.Errorf("exporting comparison %d: %w", id, err)
	}

	if _, err := s.store.MarkExported(id, format); err != nil {
		return "", fmt.Errorf("marking comparison %d exported: %w", id, err)
	}

	s.logger.Info("comparison exported", "id", id, "format", format, "path", path)
	return path, nil
}

// Setting returns a configuration value; ok is false when the key is absent.
func (s *Service) Setting(key string) (string, bool, error) {
	return s.store.Setting(key)
}

// SetSetting upserts a configuration value by key.
func (s *Service) SetSetting(key, value, description string) error {
	return s.store.SetSetting(key, value, description)
}

// AllSettings returns every setting ordered by key.
func (s *Service) AllSettings() ([]Setting, error) {
	return s.store.AllSettings()
}

// ActivityEntries returns a page of audit entries, newest first.
// limit defaults to 100.
func (s *Service) ActivityEntries(limit, offset int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.ActivityEntries(limit, offset)
}

// DiskUsage reports bytes consumed by the managed directories.
func (s *Service) DiskUsage() (*DiskUsage, error) {
	return s.files.DiskUsage()
}

// CleanTempFiles empties the scratch directory. Safe whenever no ingest or
// export is in flight.
func (s *Service) CleanTempFiles() error {
	return s.files.CleanTempFiles()
}
