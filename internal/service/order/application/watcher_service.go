// internal/service/order/application/watcher_service.go
package application

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/project-hexa/pasjajan-sub001/internal/pkg/logger"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/domain"
	"github.com/project-hexa/pasjajan-sub001/internal/service/order/port"
)

// ErrAlreadyWatched 表示该订单已经有轮询循环在跑。
var ErrAlreadyWatched = errors.New("order is already being watched")

// WatchLock 是一把已持有的跨副本互斥锁。
type WatchLock interface {
	Unlock() error
}

// LockFactory 尝试为订单抢占轮询权。
// 返回 (nil, false, nil) 表示其他副本已持有，本实例跳过该订单。
type LockFactory func(orderID string) (WatchLock, bool, error)

// WatcherService 实现配送跟踪轮询器。
//
// 每个被关注的订单一个固定节拍的循环：拉当前状态、与上次看到的比较、
// 有变化时恰好发一条通知。首次观测静默记录，不通知；
// 拉取失败记日志后跳过，连续失败达到阈值时发一条告警。
// 视图关闭（Unwatch）或服务停止后，不再有任何 tick 发生。
type WatcherService struct {
	tracking port.TrackingService
	notifier port.NotificationProducer
	rule     port.NotificationRule // 可为 nil：不做静音
	registry port.WatchRegistry    // 可为 nil：关注列表不持久化
	locks    LockFactory           // 可为 nil：单副本部署

	interval       time.Duration
	alertThreshold int
	tracer         trace.Tracer
	now            func() time.Time

	mu       sync.Mutex
	watchers map[string]*orderWatcher
	wg       sync.WaitGroup
}

// orderWatcher 是单个订单的轮询状态，全部局部于本实例。
type orderWatcher struct {
	watch  port.Watch
	cancel context.CancelFunc
	lock   WatchLock

	// inFlight 保证同一订单同时至多一个在途请求：
	// 上一次拉取还没回来时，新的 tick 直接跳过。
	inFlight   atomic.Bool
	seen       bool
	lastSeen   domain.DeliveryStatus
	failStreak int
}

// NewWatcherService 创建跟踪轮询器。
func NewWatcherService(tracking port.TrackingService, notifier port.NotificationProducer, rule port.NotificationRule, registry port.WatchRegistry, locks LockFactory, interval time.Duration, alertThreshold int, tracer trace.Tracer) *WatcherService {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &WatcherService{
		tracking:       tracking,
		notifier:       notifier,
		rule:           rule,
		registry:       registry,
		locks:          locks,
		interval:       interval,
		alertThreshold: alertThreshold,
		tracer:         tracer,
		now:            time.Now,
		watchers:       make(map[string]*orderWatcher),
	}
}

// Watch 开始关注一个订单。
// 多副本部署下抢不到锁时只登记不轮询，由持锁副本负责拉取。
func (s *WatcherService) Watch(ctx context.Context, w port.Watch) error {
	if s.registry != nil {
		if err := s.registry.Add(ctx, w); err != nil {
			return err
		}
	}
	return s.startLoop(w)
}

// Unwatch 停止关注一个订单：先撤登记，再停本地循环。
func (s *WatcherService) Unwatch(ctx context.Context, orderID string) error {
	if s.registry != nil {
		if err := s.registry.Remove(ctx, orderID); err != nil {
			return err
		}
	}
	s.stopLoop(orderID)
	return nil
}

// Resume 进程启动时恢复持久化的关注列表。
func (s *WatcherService) Resume(ctx context.Context) error {
	if s.registry == nil {
		return nil
	}
	watches, err := s.registry.List(ctx)
	if err != nil {
		return err
	}
	for _, w := range watches {
		if err := s.startLoop(w); err != nil && !errors.Is(err, ErrAlreadyWatched) {
			logger.Ctx(ctx).Warn().Err(err).Str("order", w.OrderID).Msg("failed to resume watch")
		}
	}
	return nil
}

// Stop 停掉所有轮询循环并等待退出。之后不会再有任何通知发出。
func (s *WatcherService) Stop() {
	s.mu.Lock()
	for _, ow := range s.watchers {
		ow.cancel()
	}
	s.watchers = make(map[string]*orderWatcher)
	s.mu.Unlock()
	s.wg.Wait()
}

// Watching 返回本实例正在轮询的订单数。
func (s *WatcherService) Watching() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

func (s *WatcherService) startLoop(w port.Watch) error {
	s.mu.Lock()
	if _, exists := s.watchers[w.OrderID]; exists {
		s.mu.Unlock()
		return ErrAlreadyWatched
	}
	s.mu.Unlock()

	var lock WatchLock
	if s.locks != nil {
		l, acquired, err := s.locks(w.OrderID)
		if err != nil {
			return errors.Wrapf(err, "failed to acquire watch lock for %s", w.OrderID)
		}
		if !acquired {
			logger.Logger().Info().Str("order", w.OrderID).Msg("watch lock held elsewhere, skipping local poll loop")
			return nil
		}
		lock = l
	}

	ctx, cancel := context.WithCancel(context.Background())
	ow := &orderWatcher{watch: w, cancel: cancel, lock: lock}

	s.mu.Lock()
	if _, exists := s.watchers[w.OrderID]; exists {
		s.mu.Unlock()
		cancel()
		if lock != nil {
			_ = lock.Unlock()
		}
		return ErrAlreadyWatched
	}
	s.watchers[w.OrderID] = ow
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx, ow)
	return nil
}

func (s *WatcherService) stopLoop(orderID string) {
	s.mu.Lock()
	ow, exists := s.watchers[orderID]
	if exists {
		delete(s.watchers, orderID)
	}
	s.mu.Unlock()
	if exists {
		ow.cancel()
	}
}

func (s *WatcherService) loop(ctx context.Context, ow *orderWatcher) {
	defer s.wg.Done()
	defer func() {
		if ow.lock != nil {
			if err := ow.lock.Unlock(); err != nil {
				logger.Logger().Warn().Err(err).Str("order", ow.watch.OrderID).Msg("failed to release watch lock")
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Logger().Info().Str("order", ow.watch.OrderID).Dur("interval", s.interval).Msg("✅ tracking poll loop started")
	for {
		select {
		case <-ctx.Done():
			logger.Logger().Info().Str("order", ow.watch.OrderID).Msg("🛑 tracking poll loop stopped")
			return
		case <-ticker.C:
			s.pollOnce(ctx, ow)
		}
	}
}

// pollOnce 执行一个 tick：拉取、比对、必要时通知。
func (s *WatcherService) pollOnce(ctx context.Context, ow *orderWatcher) {
	// 上一次拉取还在途，跳过本 tick
	if !ow.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer ow.inFlight.Store(false)

	ctx, span := s.tracer.Start(ctx, "watcher.PollOnce", trace.WithAttributes(
		attribute.String("order.id", ow.watch.OrderID),
	))
	defer span.End()
	pollTicksTotal.Inc()

	state, err := s.tracking.CurrentStatus(ctx, ow.watch.OrderID)
	if err != nil {
		pollErrorsTotal.Inc()
		ow.failStreak++
		// 瞬时失败只记日志，等下一个 tick
		logger.Ctx(ctx).Warn().Err(err).Str("order", ow.watch.OrderID).Int("streak", ow.failStreak).Msg("tracking fetch failed, skipping tick")
		if s.alertThreshold > 0 && ow.failStreak == s.alertThreshold {
			s.emit(ctx, ow, domain.NotificationEvent{
				EventID: uuid.New().String(),
				OrderID: ow.watch.OrderID,
				UserID:  ow.watch.UserID,
				Status:  ow.lastSeen,
				Title:   "Pelacakan Terganggu",
				Body:    "Kami kesulitan memuat status pesananmu. Akan kami coba lagi.",
				At:      s.now(),
			})
		}
		return
	}
	ow.failStreak = 0

	// 首次观测：静默记录，不通知
	if !ow.seen {
		ow.seen = true
		ow.lastSeen = state.Status
		return
	}
	if state.Status == ow.lastSeen {
		return
	}

	previous := ow.lastSeen
	ow.lastSeen = state.Status

	title, body := domain.MessageFor(state.Status, state.FailureNote)
	ev := domain.NotificationEvent{
		EventID: uuid.New().String(),
		OrderID: ow.watch.OrderID,
		UserID:  ow.watch.UserID,
		Status:  state.Status,
		Title:   title,
		Body:    body,
		At:      s.now(),
	}
	s.emit(ctx, ow, ev)

	if err := s.notifier.SendStatusChanged(ctx, domain.StatusChangedEvent{
		EventID:  uuid.New().String(),
		OrderID:  ow.watch.OrderID,
		Previous: previous,
		Current:  state.Status,
		Note:     state.FailureNote,
		At:       s.now(),
	}); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("order", ow.watch.OrderID).Msg("failed to broadcast polled status change")
	}
}

// emit 发出一条通知，先过静音规则。
func (s *WatcherService) emit(ctx context.Context, ow *orderWatcher, ev domain.NotificationEvent) {
	if s.rule != nil {
		muted, err := s.rule.Muted(ev)
		if err != nil {
			// 规则求值失败按不静音处理，宁多勿漏
			logger.Ctx(ctx).Warn().Err(err).Msg("notification rule evaluation failed")
		} else if muted {
			notificationsTotal.WithLabelValues("muted").Inc()
			return
		}
	}
	if err := s.notifier.SendNotification(ctx, ev); err != nil {
		notificationsTotal.WithLabelValues("error").Inc()
		logger.Ctx(ctx).Error().Err(err).Str("order", ev.OrderID).Msg("failed to send notification")
		return
	}
	notificationsTotal.WithLabelValues("sent").Inc()
}
