package inmem

import (
	"sync"

	"github.com/formforge/ruleengine/model"
	"github.com/formforge/ruleengine/persistence"
)

var _ persistence.DeliveryQueue = new(Queue)

type Queue struct {
	mu    sync.Mutex
	items []model.Descriptor
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(d model.Descriptor) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, d)
	return nil
}

func (q *Queue) Pop(batchSize int) ([]model.Descriptor, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if batchSize > len(q.items) {
		batchSize = len(q.items)
	}
	batch := make([]model.Descriptor, batchSize)
	copy(batch, q.items[:batchSize])
	q.items = q.items[batchSize:]
	return batch, nil
}
