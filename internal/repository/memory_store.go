package repository

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore: 用于 DB 未就绪时的联测和单元测试
// - 所有表共用一把锁，事务串行执行
// - WithinTx 开始时做快照，fn 失败或 panic 时恢复快照
// - 事务内的 Repos 不再加锁（锁已由 WithinTx 持有），因此 fn 内不能再调用 Store.Repos()
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

// NewMemoryStore 创建空的内存 Store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryData()}
}

var _ Store = (*MemoryStore)(nil)

// Repos 返回每次调用自行加锁的仓储
func (s *MemoryStore) Repos() Repos {
	return s.repos(true)
}

// WithinTx 串行执行 fn，失败时回滚到快照
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(Repos) error) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
	}()

	if err := fn(s.repos(false)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) repos(locking bool) Repos {
	base := memoryRepo{s: s, locking: locking}
	return Repos{
		Profiles:   &memoryProfiles{base},
		Shelters:   &memoryShelters{base},
		Requests:   &memoryRequests{base},
		Jobs:       &memoryJobs{base},
		Residents:  &memoryResidents{base},
		Medical:    &memoryMedical{base},
		NGOMedical: &memoryNGOMedical{base},
		SyncLogs:   &memorySyncLogs{base},
		Choices:    &memoryChoices{base},
	}
}

type memoryRepo struct {
	s       *MemoryStore
	locking bool
}

func (r memoryRepo) lock() func() {
	if !r.locking {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r memoryRepo) d() *memoryData {
	return r.s.data
}

func memNow() time.Time {
	return time.Now().UTC()
}
