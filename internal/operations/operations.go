package operations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/kebairia/pgchain/internal/chain"
	"github.com/kebairia/pgchain/internal/config"
	"github.com/kebairia/pgchain/internal/logger"
	"github.com/kebairia/pgchain/internal/pgtool"
	"github.com/kebairia/pgchain/internal/vault"
)

const lockFilename = ".pgchain.lock"

// Operator runs backup, prune, and restore cycles against one backup
// root.
type Operator struct {
	ctx  context.Context
	cfg  config.Config
	tool *pgtool.BaseBackup
	log  logger.Logger
}

// NewOperator loads and validates the YAML config at configPath and
// resolves PostgreSQL credentials, through Vault when a role path is
// configured and from the environment otherwise.
func NewOperator(configPath string) (*Operator, error) {
	var cfg config.Config
	ctx := context.Background()
	if err := cfg.Load(configPath); err != nil {
		return nil, err
	}
	log := logger.Global()

	username := cfg.Postgres.Username
	password := os.Getenv("PGPASSWORD")

	if cfg.Postgres.RolePath != "" {
		vaultClient, err := vault.NewClient(ctx,
			vault.WithAddress(cfg.Vault.Address),
			vault.WithAppRole(cfg.Vault.RoleID, cfg.Vault.ApproleName),
		)
		if err != nil {
			return nil, fmt.Errorf("vault client init: %w", err)
		}
		creds, err := vaultClient.GetDynamicCredentials(ctx, cfg.Postgres.RolePath)
		if err != nil {
			return nil, fmt.Errorf("vault read: %w", err)
		}
		username = creds.Username
		password = creds.Password
	}

	tool := pgtool.NewBaseBackup(
		pgtool.WithConnection(cfg.Postgres.Host, cfg.Postgres.Port),
		pgtool.WithCredentials(username, password),
		pgtool.WithTimeout(cfg.Backup.Timeout),
		pgtool.WithLogger(log),
	)

	return &Operator{
		ctx:  ctx,
		cfg:  cfg,
		tool: tool,
		log:  log,
	}, nil
}

// Config exposes the loaded configuration, for commands that need it.
func (op *Operator) Config() config.Config { return op.cfg }

// lockRoot takes an advisory lock on the backup root so that two
// cycles scheduled against the same root cannot interleave. The
// returned function releases it.
func (op *Operator) lockRoot() (func(), error) {
	lock := flock.New(filepath.Join(op.cfg.Backup.Directory, lockFilename))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock backup root: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("backup root %q is locked by another cycle", op.cfg.Backup.Directory)
	}
	return func() { _ = lock.Unlock() }, nil
}

// reportScan surfaces what the scan found but cannot act on: corrupt
// records headed for quarantine and orphaned chains, which are always
// retained until an operator intervenes.
func (op *Operator) reportScan(res *chain.ScanResult) {
	for _, path := range res.Corrupt {
		op.log.Warn("corrupt backup metadata", "path", path)
	}
	for _, orphan := range res.Orphans {
		op.log.Error("orphaned chain: chain_start does not resolve, excluded from retention",
			"chain_start", orphan.Start,
			"members", len(orphan.Incrementals),
		)
	}
}
