package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Rescanner 安全网扫描器：固定间隔重跑启动时的全量扫描，捞回变更
// 观察器漏掉的节点（比如没有产生元素级变更记录的内容）。变更观察
// 是尽力而为的，周期性重扫描让系统不依赖完美的变更覆盖也能自愈。
// 扫描走与观察器相同的去重路径，重复扫描不会重翻已替换的内容。
type Rescanner struct {
	interval time.Duration
	scan     func()
	logger   *zap.Logger

	mu      sync.Mutex
	quit    chan struct{}
	running bool
}

// NewRescanner 创建安全网扫描器，scan 是与启动扫描相同的全量扫描函数
func NewRescanner(interval time.Duration, scan func(), logger *zap.Logger) *Rescanner {
	return &Rescanner{
		interval: interval,
		scan:     scan,
		logger:   logger,
	}
}

// Start 启动周期扫描，重复调用是空操作
func (r *Rescanner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.running = true
	r.quit = make(chan struct{})

	go r.loop(r.quit)
}

// Stop 停止周期扫描，重复调用是空操作
func (r *Rescanner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	close(r.quit)
	r.running = false
}

func (r *Rescanner) loop(quit chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			r.logger.Debug("safety-net rescan")
			r.scan()
		}
	}
}
