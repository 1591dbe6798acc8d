package bulkimport

import (
	"fmt"

	"labstock/internal/lifecycle"
	custom_error "labstock/pkg/errors"
	"labstock/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"
)

// Batch states. Validation tolerates per-row failure; the commit step is
// all-or-nothing across the whole batch.
const (
	StateDryRunComplete = "dry_run_complete"
	StateCommitted      = "committed"
	StateCommitFailed   = "commit_failed"
)

type RowError struct {
	Row    int      `json:"row"`
	Errors []string `json:"errors"`
}

type BatchResult struct {
	State    string     `json:"state"`
	Total    int        `json:"total"`
	Accepted int        `json:"accepted"`
	Rejected []RowError `json:"rejected,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}

// Importer drives the validator over a whole table and, outside dry-run,
// commits every accepted draft through the lifecycle engine in one
// transaction.
type Importer struct {
	validator *Validator
	engine    *lifecycle.Engine
	ledger    lifecycle.HistoryLedger
	txr       lifecycle.Transactor
	log       *zap.Logger
}

func NewImporter(validator *Validator, engine *lifecycle.Engine, ledger lifecycle.HistoryLedger, txr lifecycle.Transactor, log *zap.Logger) *Importer {
	return &Importer{
		validator: validator,
		engine:    engine,
		ledger:    ledger,
		txr:       txr,
		log:       log,
	}
}

// Run validates every row, never short-circuiting on earlier failures, then
// commits the accepted drafts unless dryRun is set. rowOffset shifts reported
// row numbers; file readers pass 1 so numbers match the line after the
// header.
func (im *Importer) Run(rows []Row, actorID int, dryRun bool, rowOffset int) (*BatchResult, error) {
	result := &BatchResult{}
	var drafts []*models.Equipment
	seen := make(map[string]bool)

	for i, row := range rows {
		result.Total++
		outcome := im.validator.ValidateRow(row, i+1+rowOffset, seen)
		if !outcome.Accepted() {
			result.Rejected = append(result.Rejected, RowError{Row: outcome.Row, Errors: outcome.Errors})
			continue
		}
		seen[outcome.Draft.AssetTag] = true
		drafts = append(drafts, outcome.Draft)
		result.Accepted++
	}

	if dryRun {
		result.State = StateDryRunComplete
		return result, nil
	}

	if err := im.commit(drafts, actorID); err != nil {
		result.State = StateCommitFailed
		return result, err
	}

	result.State = StateCommitted
	im.log.Info("bulk import committed",
		zap.Int("total", result.Total),
		zap.Int("accepted", result.Accepted),
		zap.Int("rejected", len(result.Rejected)))
	return result, nil
}

// commit persists all drafts or none of them. A failure on any row rolls the
// whole batch back; accepted-row ids are not durable across a failed commit
// and the caller must re-run validation before retrying.
func (im *Importer) commit(drafts []*models.Equipment, actorID int) error {
	if len(drafts) == 0 {
		return nil
	}

	err := im.txr.WithTx(func(tx *goqu.TxDatabase) error {
		for _, draft := range drafts {
			if _, err := im.engine.CreateTx(tx, lifecycle.TransitionRequest{
				Op:      lifecycle.OpCreate,
				ActorID: actorID,
				Draft:   draft,
			}); err != nil {
				return fmt.Errorf("failed to persist '%s': %w", draft.AssetTag, err)
			}
		}

		// one audit event for the whole batch, not one per row
		return im.ledger.AppendAuditTx(tx, &models.AuditLog{
			UserID:    actorID,
			Action:    models.AuditBulkImport,
			TableName: "equipment",
			NewValues: map[string]interface{}{"count": len(drafts)},
		})
	})
	if err != nil {
		im.log.Error("bulk import commit rolled back", zap.Error(err))
		return &custom_error.PersistenceError{Err: err}
	}
	return nil
}
