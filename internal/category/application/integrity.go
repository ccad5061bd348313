package application

import (
	"context"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sebuszqo/TimeTracker/internal/category/domain"
	"github.com/sebuszqo/TimeTracker/internal/metrics"
)

const integrityRunTimeout = 5 * time.Minute

// IntegrityChecker verifies the nested-set invariants of every account tree.
type IntegrityChecker struct {
	repo   domain.Reader
	logger *zap.Logger
}

func NewIntegrityChecker(repo domain.Reader, logger *zap.Logger) *IntegrityChecker {
	return &IntegrityChecker{repo: repo, logger: logger}
}

type IntegrityReport struct {
	Accounts   int
	Violations map[int64][]domain.Violation
}

func (r IntegrityReport) Clean() bool { return len(r.Violations) == 0 }

func (c *IntegrityChecker) Run(ctx context.Context) (report IntegrityReport, err error) {
	defer func() {
		result := "ok"
		switch {
		case err != nil:
			result = "error"
		case !report.Clean():
			result = "violations"
		}
		metrics.IntegrityRuns.WithLabelValues(result).Inc()
	}()

	accountIDs, err := c.repo.ListAccountIDs(ctx)
	if err != nil {
		return report, err
	}
	report.Violations = make(map[int64][]domain.Violation)
	for _, accountID := range accountIDs {
		nodes, err := c.repo.FindByAccount(ctx, accountID)
		if err != nil {
			return report, err
		}
		report.Accounts++

		violations := domain.VerifyTree(nodes)
		metrics.TreeViolations.WithLabelValues(strconv.FormatInt(accountID, 10)).Set(float64(len(violations)))
		if len(violations) == 0 {
			continue
		}
		report.Violations[accountID] = violations
		for _, v := range violations {
			c.logger.Warn("category tree violation",
				zap.Int64("account_id", accountID),
				zap.Int64("category_id", v.NodeID),
				zap.String("reason", v.Reason),
			)
		}
	}
	return report, nil
}

// Schedule starts a cron job running the checker on spec, e.g. "@every 1h".
func (c *IntegrityChecker) Schedule(spec string) (*cron.Cron, error) {
	cr := cron.New()
	_, err := cr.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), integrityRunTimeout)
		defer cancel()

		report, err := c.Run(ctx)
		if err != nil {
			c.logger.Error("category integrity run failed", zap.Error(err))
			return
		}
		c.logger.Info("category integrity run finished",
			zap.Int("accounts", report.Accounts),
			zap.Int("accounts_with_violations", len(report.Violations)),
		)
	})
	if err != nil {
		return nil, err
	}
	cr.Start()
	return cr, nil
}
