package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/evonota/evonota/internal/docstore"
)

type AuditPruneJob struct {
	store         docstore.Store
	retentionDays int
}

func NewAuditPruneJob(store docstore.Store, retentionDays int) *AuditPruneJob {
	return &AuditPruneJob{store: store, retentionDays: retentionDays}
}

func (j *AuditPruneJob) Name() string {
	return "audit_prune"
}

func (j *AuditPruneJob) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}
	retentionDays := j.retentionDays
	if retentionDays <= 0 {
		retentionDays = 90
	}
	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour).Unix()
	deleted, err := j.store.PruneAudit(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("pruned audit entries", zap.Int64("deleted", deleted))
	}
	return nil
}
