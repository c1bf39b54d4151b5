// Package utils 提供雪花 ID 生成器等通用工具
package utils

import (
	"os"
	"sync"
	"time"
)

// SnowflakeID 雪花算法 ID 生成器
type SnowflakeID struct {
	mu        sync.Mutex
	timestamp int64
	sequence  int64
	nodeID    int64
}

// NewSnowflakeID 创建雪花 ID 生成器
func NewSnowflakeID(nodeID int64) *SnowflakeID {
	return &SnowflakeID{nodeID: nodeID & 0x3FF} // 10 bits
}

// Generate 生成雪花 ID
func (s *SnowflakeID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & 0xFFF // 12 bits
		if s.sequence == 0 {
			// 序列号耗尽，等待下一毫秒
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now
	return (now << 22) | (s.nodeID << 12) | s.sequence
}

var (
	defaultGen     *SnowflakeID
	defaultGenOnce sync.Once
)

// GenID 基于进程号派生节点位的全局 ID 生成入口
func GenID() int64 {
	defaultGenOnce.Do(func() {
		defaultGen = NewSnowflakeID(int64(os.Getpid()))
	})
	return defaultGen.Generate()
}
