// internal/service/order/infrastructure/mysql.go
package infrastructure

import (
	"context"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/port"
)

const mysqlDuplicateEntry = 1062

// GormStore 同时实现 port.TransitionAuditLog 和 port.WatchRegistry：
// 前者是后台活动日志，后者让轮询器重启后能恢复关注列表。
type GormStore struct {
	db *gorm.DB
}

// transitionRecord 是状态流转的审计行。EventID 唯一，重复写入按幂等处理。
type transitionRecord struct {
	ID             uint   `gorm:"primaryKey"`
	EventID        string `gorm:"size:64;uniqueIndex"`
	OrderID        string `gorm:"size:64;index"`
	PreviousStatus string `gorm:"size:32"`
	CurrentStatus  string `gorm:"size:32"`
	Note           string `gorm:"type:text"`
	ChangedBy      string `gorm:"size:64"`
	Rollback       bool
	ChangedAt      time.Time
	CreatedAt      time.Time
}

func (transitionRecord) TableName() string { return "delivery_transitions" }

// watchRecord 是轮询器的关注列表行。
type watchRecord struct {
	OrderID   string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"size:64;index"`
	CreatedAt time.Time
}

func (watchRecord) TableName() string { return "tracking_watches" }

// NewGormStore 打开 MySQL 连接并迁移表结构。
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open mysql")
	}
	if err := db.AutoMigrate(&transitionRecord{}, &watchRecord{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate tables")
	}
	return &GormStore{db: db}, nil
}

// Record 写一条审计日志。同一 EventID 的重复写入不报错。
func (s *GormStore) Record(ctx context.Context, ev domain.StatusChangedEvent) error {
	rec := transitionRecord{
		EventID:        ev.EventID,
		OrderID:        ev.OrderID,
		PreviousStatus: string(ev.Previous),
		CurrentStatus:  string(ev.Current),
		Note:           ev.Note,
		ChangedBy:      ev.ChangedBy,
		Rollback:       ev.Rollback,
		ChangedAt:      ev.At,
	}
	err := s.db.WithContext(ctx).Create(&rec).Error
	if err != nil {
		var mysqlErr *driver.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return nil
		}
		return errors.Wrap(err, "failed to record transition")
	}
	return nil
}

// History 按时间正序返回一个订单的流转记录。
func (s *GormStore) History(ctx context.Context, orderID string) ([]domain.StatusChangedEvent, error) {
	var recs []transitionRecord
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("changed_at asc").
		Find(&recs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load transition history")
	}

	events := make([]domain.StatusChangedEvent, 0, len(recs))
	for _, rec := range recs {
		events = append(events, domain.StatusChangedEvent{
			EventID:   rec.EventID,
			OrderID:   rec.OrderID,
			Previous:  domain.DeliveryStatus(rec.PreviousStatus),
			Current:   domain.DeliveryStatus(rec.CurrentStatus),
			Note:      rec.Note,
			ChangedBy: rec.ChangedBy,
			Rollback:  rec.Rollback,
			At:        rec.ChangedAt,
		})
	}
	return events, nil
}

// Add 登记一条关注。重复登记按更新处理。
func (s *GormStore) Add(ctx context.Context, w port.Watch) error {
	rec := watchRecord{OrderID: w.OrderID, UserID: w.UserID}
	err := s.db.WithContext(ctx).Save(&rec).Error
	return errors.Wrap(err, "failed to add watch")
}

// Remove 摘掉一条关注。
func (s *GormStore) Remove(ctx context.Context, orderID string) error {
	err := s.db.WithContext(ctx).Delete(&watchRecord{}, "order_id = ?", orderID).Error
	return errors.Wrap(err, "failed to remove watch")
}

// List 返回全部关注，进程启动时用于恢复轮询。
func (s *GormStore) List(ctx context.Context) ([]port.Watch, error) {
	var recs []watchRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list watches")
	}
	watches := make([]port.Watch, 0, len(recs))
	for _, rec := range recs {
		watches = append(watches, port.Watch{OrderID: rec.OrderID, UserID: rec.UserID})
	}
	return watches, nil
}
