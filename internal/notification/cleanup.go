package notification

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// defaultRetentionDays は通知レコードの保持日数の既定値。
const defaultRetentionDays = 90

// Cleaner は保持期限を過ぎた通知レコードを定期削除するジョブ。
type Cleaner struct {
	store         *Store
	cron          *cron.Cron
	retentionDays int
}

// NewCleaner は新しい保持期限ジョブを生成する。
// retentionDaysが0以下の場合は既定値を使う。
func NewCleaner(store *Store, retentionDays int) *Cleaner {
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	return &Cleaner{
		store:         store,
		cron:          cron.New(),
		retentionDays: retentionDays,
	}
}

// Start は日次の削除スケジュールを開始する。
func (c *Cleaner) Start() error {
	if _, err := c.cron.AddFunc("@daily", c.run); err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// Stop はスケジュールを停止し、実行中のジョブの完了を待つ。
func (c *Cleaner) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// run は保持期限を過ぎた通知を1回分削除する。
func (c *Cleaner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -c.retentionDays)
	deleted, err := c.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("古い通知の削除に失敗: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("保持期限を過ぎた通知を削除しました: count=%d cutoff=%s", deleted, cutoff.Format(time.RFC3339))
	}
}
