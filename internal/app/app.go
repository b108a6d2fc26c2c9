package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fc-go/internal/config"
	"fc-go/internal/database"
	"fc-go/internal/encryption"
	"fc-go/internal/fc"
	"fc-go/internal/files"
	"fc-go/internal/vault"
)

// FCApp is the application layer between the CLI and the Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the store lifecycle on Close.
type FCApp struct {
	cfg       *config.Config
	store     fc.Store
	files     fc.FileStore
	vault     fc.Vault
	encryptor fc.Encryptor
	service   *fc.Service
	logger    fc.Logger
	logFile   *os.File
}

// NewFCApp creates a fully wired FCApp from the given config.
// operation identifies the CLI command being run (e.g. "RefAdd", "Maintain").
// The caller must call Close when done.
func NewFCApp(cfg *config.Config, operation string) (*FCApp, error) {
	dataDir := cfg.Database.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(cfg.BaseDir, "data")
	}

	clock := fc.RealClock{}

	store, err := database.NewStoreFromConfig(cfg.Database, clock)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	mgr, err := files.NewManager(dataDir, clock)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating file manager: %w", err)
	}

	// The vault is optional. When none is configured backups stay local.
	var v fc.Vault
	if len(cfg.Vaults) > 0 {
		v, err = vault.NewVaultFromConfig(cfg.Vaults[0])
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating vault: %w", err)
		}
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	adapter := &slogAdapter{l: logger.With("op", operation)}
	svc := fc.NewService(store, mgr, v, enc, adapter, clock)

	return &FCApp{
		cfg:       cfg,
		store:     store,
		files:     mgr,
		vault:     v,
		encryptor: enc,
		service:   svc,
		logger:    adapter,
		logFile:   logFile,
	}, nil
}

// AddReferenceFile reads a file from disk and ingests it as a reference file.
func (a *FCApp) AddReferenceFile(rawPath, description, tags string) (*fc.ReferenceFile, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	name := filepath.Base(absPath)
	mediaType := files.MediaTypeForName(name)
	return a.service.AddReferenceFile(data, name, int64(len(data)), mediaType, description, tags)
}

// ListReferenceFiles returns active reference files, newest upload first.
func (a *FCApp) ListReferenceFiles() ([]fc.ReferenceFile, error) {
	return a.service.ListReferenceFiles()
}

// RemoveReferenceFile soft-deletes a reference file and removes its body.
func (a *FCApp) RemoveReferenceFile(id int64) (int64, error) {
	return a.service.RemoveReferenceFile(id)
}

// SaveComparisonResult decodes a diff-engine result file and records it as a
// comparison run. referenceID, when positive, links the run to a catalogued
// reference file and updates that file's usage bookkeeping.
func (a *FCApp) SaveComparisonResult(rawPath string, referenceID int64, notes string) (int64, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return 0, fmt.Errorf("reading result file: %w", err)
	}

	var result fc.ComparisonResult
	if err := json.Unmarshal(data, &result); err != nil {
		return 0, fmt.Errorf("decoding comparison result: %w", err)
	}

	run := fc.RunFromResult(&result, notes)
	if referenceID > 0 {
		run.ReferenceFileID = &referenceID
	}
	return a.service.SaveComparison(run)
}

// ComparisonHistory returns a page of past comparison runs, newest first.
func (a *FCApp) ComparisonHistory(limit, offset int) ([]fc.HistoryEntry, error) {
	return a.service.ComparisonHistory(limit, offset)
}

// ComparisonDetails returns one comparison run with its stored payloads.
func (a *FCApp) ComparisonDetails(id int64) (*fc.ComparisonDetails, error) {
	return a.service.ComparisonDetails(id)
}

// ExportComparison renders a stored comparison into the given format and
// returns the export file path.
func (a *FCApp) ExportComparison(id int64, format string) (string, error) {
	return a.service.ExportComparison(id, format)
}

// Setting returns one configuration value; ok is false when the key is absent.
func (a *FCApp) Setting(key string) (string, bool, error) {
	return a.service.Setting(key)
}

// SetSetting upserts a configuration value.
func (a *FCApp) SetSetting(key, value, description string) error {
	return a.service.SetSetting(key, value, description)
}

// AllSettings returns every setting ordered by key.
func (a *FCApp) AllSettings() ([]fc.Setting, error) {
	return a.service.AllSettings()
}

// ActivityEntries returns a page of audit entries, newest first.
func (a *FCApp) ActivityEntries(limit, offset int) ([]fc.ActivityEntry, error) {
	return a.service.ActivityEntries(limit, offset)
}

// Statistics returns aggregate catalog statistics.
func (a *FCApp) Statistics() (*fc.Statistics, error) {
	return a.service.Statistics()
}

// DiskUsage reports bytes consumed by the managed directories.
func (a *FCApp) DiskUsage() (*fc.DiskUsage, error) {
	return a.service.DiskUsage()
}

// CleanTempFiles empties the scratch directory.
func (a *FCApp) CleanTempFiles() error {
	return a.service.CleanTempFiles()
}

// Maintain runs one housekeeping pass.
func (a *FCApp) Maintain() error {
	return a.service.Maintain()
}

// Backup snapshots the store, optionally encrypting and pushing it off-site.
// Returns the local backup path.
func (a *FCApp) Backup() (string, error) {
	return a.service.Backup()
}

// DecryptBackup unlocks the private key with the passphrase and decrypts an
// encrypted backup file to outPath.
func (a *FCApp) DecryptBackup(encPath, outPath, passphrase string) error {
	if a.encryptor == nil || !a.encryptor.IsConfigured() {
		return fmt.Errorf("encryption is not configured")
	}

	ctx, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}

	src, err := os.Open(encPath)
	if err != nil {
		return fmt.Errorf("opening encrypted backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer dst.Close()

	if err := ctx.Decrypt(src, dst); err != nil {
		return fmt.Errorf("decrypting backup: %w", err)
	}
	return nil
}

// SetupEncryption generates a key pair protected by the passphrase.
func (a *FCApp) SetupEncryption(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is not configured")
	}
	return a.encryptor.Setup(passphrase)
}

// ValidateVault checks that the configured off-site vault is reachable.
func (a *FCApp) ValidateVault() error {
	if a.vault == nil {
		return fmt.Errorf("no vault configured")
	}
	return a.vault.ValidateSetup()
}

// ListVaultBackups lists off-site backups, newest first.
func (a *FCApp) ListVaultBackups() ([]string, error) {
	if a.vault == nil {
		return nil, fmt.Errorf("no vault configured")
	}
	return a.vault.ListBackups()
}

// Wipe deletes every row from every table and reseeds the defaults.
func (a *FCApp) Wipe() error {
	return a.service.Wipe()
}

// Close closes the store and the log file.
func (a *FCApp) Close() error {
	var firstErr error

	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
