package pipeline

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/formforge/ruleengine/model"
	"github.com/formforge/ruleengine/persistence/inmem"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	service  *Service
	storage  *inmem.Storage
	queue    *inmem.Queue
	pipeline *model.Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	storage := inmem.NewStorage()
	queue := inmem.NewQueue()
	service := NewService(storage, queue)
	p := &model.Pipeline{
		Name:            "submissions",
		FormId:          "form-1",
		DefaultSlaHours: 4,
		Stages: []model.PipelineStage{
			{Id: "s-new", Name: "New", Order: 0},
			{Id: "s-review", Name: "Review", Order: 1, SlaHours: 8},
			{Id: "s-done", Name: "Done", Order: 2},
		},
	}
	require.NoError(t, service.SavePipeline(p))
	return &fixture{service: service, storage: storage, queue: queue, pipeline: p}
}

func TestEnterCreatesCardAtFirstStage(t *testing.T) {
	f := newFixture(t)
	card, err := f.service.Enter(f.pipeline.Id, "sub-1")
	require.NoError(t, err)
	require.Equal(t, "s-new", card.CurrentStageId)
	require.Equal(t, 0, card.Position)
	require.False(t, card.SlaBreached)
	// stage has no own SLA, so the pipeline default applies
	require.WithinDuration(t, time.Now().Add(4*time.Hour), card.SlaDeadline, time.Minute)

	second, err := f.service.Enter(f.pipeline.Id, "sub-2")
	require.NoError(t, err)
	require.Equal(t, 1, second.Position)
}

func TestMoveProducesOneTransitionAndUpdatesCard(t *testing.T) {
	f := newFixture(t)
	card, err := f.service.Enter(f.pipeline.Id, "sub-1")
	require.NoError(t, err)

	// simulate 3 hours spent in "New"
	card.EnteredCurrentStageAt = time.Now().Add(-3 * time.Hour)
	card.SlaBreached = true
	require.NoError(t, f.storage.SaveCard(*card))

	result := f.service.Move(card.Id, "s-review", "alice", "looks ready", false)
	require.True(t, result.Success)
	require.Equal(t, "s-review", result.Card.CurrentStageId)
	require.False(t, result.Card.SlaBreached)
	require.WithinDuration(t, time.Now(), result.Card.EnteredCurrentStageAt, time.Minute)
	// "Review" declares its own 8 hour SLA
	require.WithinDuration(t, time.Now().Add(8*time.Hour), result.Card.SlaDeadline, time.Minute)

	require.NotNil(t, result.Transition)
	require.Equal(t, "s-new", result.Transition.FromStageId)
	require.Equal(t, "s-review", result.Transition.ToStageId)
	require.Equal(t, "alice", result.Transition.Actor)
	require.InDelta(t, 180, result.Transition.MinutesInPreviousStage, 1)

	transitions, err := f.storage.GetTransitionsByCard(card.Id)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
}

func TestMoveMissingCardFails(t *testing.T) {
	f := newFixture(t)
	result := f.service.Move("no-such-card", "s-review", "alice", "", false)
	require.False(t, result.Success)
	require.NotEmpty(t, result.Error)
}

func TestMoveUnknownStageFails(t *testing.T) {
	f := newFixture(t)
	card, err := f.service.Enter(f.pipeline.Id, "sub-1")
	require.NoError(t, err)
	result := f.service.Move(card.Id, "s-nowhere", "alice", "", false)
	require.False(t, result.Success)
	require.NotEmpty(t, result.Error)

	transitions, err := f.storage.GetTransitionsByCard(card.Id)
	require.NoError(t, err)
	require.Empty(t, transitions)
}

func TestCardsCanCycleBetweenStages(t *testing.T) {
	f := newFixture(t)
	card, err := f.service.Enter(f.pipeline.Id, "sub-1")
	require.NoError(t, err)

	require.True(t, f.service.Move(card.Id, "s-review", "a", "", false).Success)
	require.True(t, f.service.Move(card.Id, "s-done", "a", "", false).Success)
	require.True(t, f.service.Move(card.Id, "s-new", "a", "reopened", false).Success)

	transitions, err := f.storage.GetTransitionsByCard(card.Id)
	require.NoError(t, err)
	require.Len(t, transitions, 3)
}

func TestSourceStagePositionsCompactAfterMove(t *testing.T) {
	f := newFixture(t)
	var cards []*model.Card
	for i := 0; i < 3; i++ {
		c, err := f.service.Enter(f.pipeline.Id, fmt.Sprintf("sub-%d", i))
		require.NoError(t, err)
		cards = append(cards, c)
	}
	// move out the middle card
	require.True(t, f.service.Move(cards[1].Id, "s-review", "a", "", false).Success)

	remaining, err := f.storage.GetCardsByStage(f.pipeline.Id, "s-new")
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	for i, c := range remaining {
		require.Equal(t, i, c.Position)
	}
}

func TestConcurrentMovesKeepPositionsUnique(t *testing.T) {
	f := newFixture(t)
	const n = 8
	var ids []string
	for i := 0; i < n; i++ {
		c, err := f.service.Enter(f.pipeline.Id, fmt.Sprintf("sub-%d", i))
		require.NoError(t, err)
		ids = append(ids, c.Id)
	}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(cardId string) {
			defer wg.Done()
			result := f.service.Move(cardId, "s-review", "bot", "", true)
			require.True(t, result.Success)
		}(id)
	}
	wg.Wait()

	moved, err := f.storage.GetCardsByStage(f.pipeline.Id, "s-review")
	require.NoError(t, err)
	require.Len(t, moved, n)
	seen := map[int]bool{}
	for _, c := range moved {
		require.False(t, seen[c.Position], "duplicate position %d", c.Position)
		seen[c.Position] = true
	}
}

func TestStageEntryTriggers(t *testing.T) {
	f := newFixture(t)
	f.pipeline.Stages[1].Triggers = []model.StageTrigger{
		{Type: model.TRIGGER_TYPE_WEBHOOK, Params: map[string]any{"url": "https://hooks.example.com/review"}},
		{Type: model.TRIGGER_TYPE_EMAIL, Params: map[string]any{"recipient": "ops@example.com", "subject": "review"}},
		{Type: model.TRIGGER_TYPE_AUTO_ASSIGN, Params: map[string]any{"assignee": "bob"}},
		{Type: "unknown"}, // swallowed, must not block the move
	}
	require.NoError(t, f.service.SavePipeline(f.pipeline))

	card, err := f.service.Enter(f.pipeline.Id, "sub-1")
	require.NoError(t, err)
	result := f.service.Move(card.Id, "s-review", "alice", "", false)
	require.True(t, result.Success)
	require.Equal(t, "bob", result.Card.Assignee)

	queued, err := f.queue.Pop(10)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	types := map[model.DescriptorType]bool{}
	for _, d := range queued {
		types[d.Type] = true
	}
	require.True(t, types[model.DESCRIPTOR_TYPE_WEBHOOK])
	require.True(t, types[model.DESCRIPTOR_TYPE_NOTIFICATION])
}

func TestWipLimitIsAdvisory(t *testing.T) {
	f := newFixture(t)
	f.pipeline.Stages[1].WipLimit = 1
	require.NoError(t, f.service.SavePipeline(f.pipeline))

	first, err := f.service.Enter(f.pipeline.Id, "sub-1")
	require.NoError(t, err)
	second, err := f.service.Enter(f.pipeline.Id, "sub-2")
	require.NoError(t, err)

	result := f.service.Move(first.Id, "s-review", "a", "", false)
	require.True(t, result.Success)
	require.False(t, result.WipExceeded)

	result = f.service.Move(second.Id, "s-review", "a", "", false)
	require.True(t, result.Success)
	require.True(t, result.WipExceeded)
}

func TestSlaScanner(t *testing.T) {
	f := newFixture(t)
	card, err := f.service.Enter(f.pipeline.Id, "sub-1")
	require.NoError(t, err)

	card.SlaDeadline = time.Now().Add(-time.Minute)
	require.NoError(t, f.storage.SaveCard(*card))

	scanner := NewSlaScanner(f.storage, f.queue)
	scanner.Scan()

	updated, err := f.storage.GetCard(card.Id)
	require.NoError(t, err)
	require.True(t, updated.SlaBreached)

	queued, err := f.queue.Pop(10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	require.Equal(t, model.DESCRIPTOR_TYPE_NOTIFICATION, queued[0].Type)

	// a second scan must not notify again
	scanner.Scan()
	queued, err = f.queue.Pop(10)
	require.NoError(t, err)
	require.Empty(t, queued)
}
