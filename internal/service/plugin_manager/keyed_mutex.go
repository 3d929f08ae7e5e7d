// Package plugin_manager file: internal/service/plugin_manager/keyed_mutex.go
package plugin_manager

import "sync"

// keyedMutex 按插件 key 提供互斥：同一 key 的安装串行执行，
// 不同 key 的安装互不阻塞。锁对象常驻，插件 key 的基数很小。
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock 锁定指定 key，返回对应的解锁函数。
func (km *keyedMutex) Lock(key string) func() {
	km.mu.Lock()
	lock, ok := km.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		km.locks[key] = lock
	}
	km.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
