package social

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"trade-alert-relay/internal/models"
)

// ThreadIndex holds the account's timeline for one flow run so each trade
// can find the post to reply to without another full timeline scan. A post
// is a thread anchor for ticker T when its text contains "$T" and is not a
// position summary; the newest anchor wins.
type ThreadIndex struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewThreadIndex creates a ThreadIndex on db, which must already be migrated.
func NewThreadIndex(db *gorm.DB, logger *zap.Logger) *ThreadIndex {
	return &ThreadIndex{db: db, logger: logger.Named("thread-index")}
}

// Load replaces the index content with the full timeline, paging backwards
// from the newest post until the API returns an empty page.
func (x *ThreadIndex) Load(ctx context.Context, client ClientInterface, pageSize int) error {
	db := x.db.WithContext(ctx)
	if err := db.Where("1 = 1").Delete(&models.ThreadPost{}).Error; err != nil {
		return fmt.Errorf("failed to clear thread index: %w", err)
	}

	var (
		seq   int64
		maxID string
		last  uint64
		pages int
	)
	for {
		posts, err := client.Timeline(ctx, maxID, pageSize)
		if err != nil {
			return err
		}
		if len(posts) == 0 {
			break
		}
		pages++

		rows := make([]models.ThreadPost, 0, len(posts))
		oldest := uint64(0)
		for _, p := range posts {
			id, err := strconv.ParseUint(p.ID, 10, 64)
			if err != nil {
				return fmt.Errorf("unexpected post id %q: %w", p.ID, err)
			}
			if maxID != "" && id > last {
				continue
			}
			if oldest == 0 || id < oldest {
				oldest = id
			}
			rows = append(rows, models.ThreadPost{PostID: p.ID, Text: p.Text, Seq: seq})
			seq++
		}
		if len(rows) == 0 || oldest == 0 {
			break
		}
		if err := db.CreateInBatches(&rows, 100).Error; err != nil {
			return fmt.Errorf("failed to index timeline page: %w", err)
		}
		last = oldest - 1
		maxID = strconv.FormatUint(last, 10)
	}

	x.logger.Debug("Timeline indexed", zap.Int64("posts", seq), zap.Int("pages", pages))
	return nil
}

// Lookup returns the id of the newest post that anchors a thread for ticker.
func (x *ThreadIndex) Lookup(ctx context.Context, ticker string) (string, bool, error) {
	var post models.ThreadPost
	err := x.db.WithContext(ctx).
		Where("instr(text, ?) > 0 AND instr(text, ?) = 0", "$"+ticker, positionsMarker).
		Order("seq ASC").
		Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up thread for %s: %w", ticker, err)
	}
	return post.PostID, true, nil
}

// Record adds a post published during this run as the newest entry.
func (x *ThreadIndex) Record(ctx context.Context, p Post) error {
	db := x.db.WithContext(ctx)

	var newest struct{ Seq *int64 }
	if err := db.Model(&models.ThreadPost{}).Select("MIN(seq) AS seq").Scan(&newest).Error; err != nil {
		return fmt.Errorf("failed to read thread index: %w", err)
	}
	seq := int64(0)
	if newest.Seq != nil {
		seq = *newest.Seq - 1
	}
	if err := db.Create(&models.ThreadPost{PostID: p.ID, Text: p.Text, Seq: seq}).Error; err != nil {
		return fmt.Errorf("failed to record post %s: %w", p.ID, err)
	}
	return nil
}
