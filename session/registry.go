package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ByLCY/keepsake/logging"
)

// DefaultIdleTTL 是会话闲置多久后被回收。
const DefaultIdleTTL = 2 * time.Hour

// Registry 按 id 管理内存中的会话，进程退出即丢失。
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry 创建会话表，ttl <= 0 时使用 DefaultIdleTTL。
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Registry{sessions: map[string]*Session{}, ttl: ttl, now: time.Now}
}

// Get 按 id 查找会话。
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Create 新建一个随机 id 的会话。
func (r *Registry) Create() *Session {
	s := New(uuid.NewString())
	s.now = r.now
	s.touched = r.now()
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	logging.Logger().Debug("session created", slog.String("id", s.id))
	return s
}

// GetOrCreate 查找 id 对应的会话，不存在时新建（新会话的 id 与入参不同）。
func (r *Registry) GetOrCreate(id string) *Session {
	if id != "" {
		if s, ok := r.Get(id); ok {
			return s
		}
	}
	return r.Create()
}

// Len 返回会话数量。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep 回收闲置超过 ttl 且不在导出中的会话，返回回收数量。
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		touched, busy := s.idleSince()
		if busy || touched.After(cutoff) {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	if removed > 0 {
		logging.Logger().Info("sessions swept", slog.Int("removed", removed))
	}
	return removed
}

// StartSweeper 定期调用 Sweep，返回停止函数。
func (r *Registry) StartSweeper(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
