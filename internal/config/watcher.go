package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fxchannel/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Snapshot 是某一版本配置的只读快照。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Config   Config
}

// ChangeListener 在配置变更时被调用。
type ChangeListener func(Snapshot)

// Watcher 监听主配置文件，变更后重新 Load 并通知订阅者。
// 重新加载失败时保留上一版快照。
type Watcher struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewWatcher 立即加载一次配置，随后开始监听 FS 事件。
func NewWatcher(path string) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config watcher requires path")
	}
	w := &Watcher{path: path}
	if err := w.reload(); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := w.reload(); err != nil {
			logger.Errorf("配置重新加载失败 (%s): %v", evt.Name, err)
			return
		}
		w.notify()
	})
	v.WatchConfig()
	w.v = v
	return w, nil
}

// Snapshot 返回当前配置快照。
func (w *Watcher) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return cloneSnapshot(w.snapshot)
}

// Subscribe 注册监听器，并立即收到一次完整快照。
func (w *Watcher) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	snap := cloneSnapshot(w.snapshot)
	w.mu.Unlock()
	go dispatch(fn, snap)
}

func (w *Watcher) notify() {
	w.mu.RLock()
	snap := cloneSnapshot(w.snapshot)
	listeners := append([]ChangeListener(nil), w.listeners...)
	w.mu.RUnlock()
	for _, fn := range listeners {
		go dispatch(fn, snap)
	}
}

func dispatch(fn ChangeListener, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("config listener panic: %v", r)
		}
	}()
	fn(snap)
}

func (w *Watcher) reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.snapshot = Snapshot{
		Version:  w.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Config:   *cfg,
	}
	w.mu.Unlock()
	logger.Infof("配置已加载: %s (seeds=%d)", filepath.Base(w.path), len(cfg.Seeds))
	return nil
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := src
	if len(src.Config.Seeds) > 0 {
		dst.Config.Seeds = append(src.Config.Seeds[:0:0], src.Config.Seeds...)
	}
	return dst
}
