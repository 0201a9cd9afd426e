// Package inmem provides map-backed implementations of the storage and
// delivery-queue interfaces, used by tests and the memory storage impl.
package inmem

import (
	"sort"
	"sync"

	"github.com/formforge/ruleengine/model"
	"github.com/formforge/ruleengine/persistence"
)

var _ persistence.Storage = new(Storage)

type Storage struct {
	mu          sync.RWMutex
	rules       map[string]model.Rule
	pipelines   map[string]model.Pipeline
	cards       map[string]model.Card
	transitions map[string][]model.StageTransition
	logs        map[string][]model.ExecutionLog
}

func NewStorage() *Storage {
	return &Storage{
		rules:       make(map[string]model.Rule),
		pipelines:   make(map[string]model.Pipeline),
		cards:       make(map[string]model.Card),
		transitions: make(map[string][]model.StageTransition),
		logs:        make(map[string][]model.ExecutionLog),
	}
}

func (s *Storage) SaveRule(r model.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[r.Id] = r
	return nil
}

func (s *Storage) GetRule(id string) (*model.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "rule", Id: id}
	}
	return &r, nil
}

func (s *Storage) DeleteRule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return persistence.NotFoundError{Kind: "rule", Id: id}
	}
	delete(s.rules, id)
	return nil
}

func (s *Storage) GetRulesByForm(formId string) ([]*model.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Rule
	for id := range s.rules {
		r := s.rules[id]
		if r.FormId == formId {
			result = append(result, &r)
		}
	}
	return result, nil
}

func (s *Storage) SavePipeline(p model.Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipelines[p.Id] = p
	return nil
}

func (s *Storage) GetPipeline(id string) (*model.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pipelines[id]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "pipeline", Id: id}
	}
	return &p, nil
}

func (s *Storage) DeletePipeline(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pipelines[id]; !ok {
		return persistence.NotFoundError{Kind: "pipeline", Id: id}
	}
	delete(s.pipelines, id)
	return nil
}

func (s *Storage) ListPipelines() ([]*model.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*model.Pipeline, 0, len(s.pipelines))
	for id := range s.pipelines {
		p := s.pipelines[id]
		result = append(result, &p)
	}
	return result, nil
}

func (s *Storage) SaveCard(c model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[c.Id] = c
	return nil
}

func (s *Storage) GetCard(id string) (*model.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "card", Id: id}
	}
	return &c, nil
}

func (s *Storage) GetCardsByStage(pipelineId string, stageId string) ([]*model.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Card
	for id := range s.cards {
		c := s.cards[id]
		if c.PipelineId == pipelineId && c.CurrentStageId == stageId {
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

func (s *Storage) GetCardsByPipeline(pipelineId string) ([]*model.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Card
	for id := range s.cards {
		c := s.cards[id]
		if c.PipelineId == pipelineId {
			result = append(result, &c)
		}
	}
	return result, nil
}

func (s *Storage) SaveTransition(t model.StageTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions[t.CardId] = append(s.transitions[t.CardId], t)
	return nil
}

func (s *Storage) GetTransitionsByCard(cardId string) ([]*model.StageTransition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.transitions[cardId]
	result := make([]*model.StageTransition, 0, len(records))
	for i := range records {
		t := records[i]
		result = append(result, &t)
	}
	return result, nil
}

func (s *Storage) SaveExecutionLog(l model.ExecutionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[l.FormId] = append(s.logs[l.FormId], l)
	return nil
}

func (s *Storage) GetExecutionLogsByForm(formId string, limit int) ([]*model.ExecutionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.logs[formId]
	// newest first
	result := make([]*model.ExecutionLog, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		l := records[i]
		result = append(result, &l)
	}
	return result, nil
}
