package redis

import (
	"context"
	"errors"

	"github.com/formforge/ruleengine/model"
	"github.com/formforge/ruleengine/persistence"
	"github.com/formforge/ruleengine/util"
	rd "github.com/go-redis/redis/v9"
)

const RULE_KEY string = "RULE"
const FORM_RULES_KEY string = "FORM_RULES"
const PIPELINE_KEY string = "PIPELINE"
const PIPELINES_KEY string = "PIPELINES"
const CARD_KEY string = "CARD"
const STAGE_CARDS_KEY string = "STAGE_CARDS"
const PIPELINE_CARDS_KEY string = "PIPELINE_CARDS"
const TRANSITIONS_KEY string = "TRANSITIONS"
const EXEC_LOGS_KEY string = "EXEC_LOGS"

var _ persistence.Storage = new(redisStorage)

type redisStorage struct {
	baseDao
	ruleEncDec       util.EncoderDecoder[model.Rule]
	pipelineEncDec   util.EncoderDecoder[model.Pipeline]
	cardEncDec       util.EncoderDecoder[model.Card]
	transitionEncDec util.EncoderDecoder[model.StageTransition]
	logEncDec        util.EncoderDecoder[model.ExecutionLog]
}

func NewRedisStorage(conf Config) *redisStorage {
	return &redisStorage{
		baseDao:          *newBaseDao(conf),
		ruleEncDec:       util.NewJsonEncoderDecoder[model.Rule](),
		pipelineEncDec:   util.NewJsonEncoderDecoder[model.Pipeline](),
		cardEncDec:       util.NewJsonEncoderDecoder[model.Card](),
		transitionEncDec: util.NewJsonEncoderDecoder[model.StageTransition](),
		logEncDec:        util.NewJsonEncoderDecoder[model.ExecutionLog](),
	}
}

func (rs *redisStorage) SaveRule(r model.Rule) error {
	ctx := context.Background()
	data, err := rs.ruleEncDec.Encode(r)
	if err != nil {
		return persistence.StorageLayerError{Cause: err}
	}
	pipe := rs.redisClient.TxPipeline()
	pipe.Set(ctx, rs.getNamespaceKey(RULE_KEY, r.Id), data, 0)
	pipe.SAdd(ctx, rs.getNamespaceKey(FORM_RULES_KEY, r.FormId), r.Id)
	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.StorageLayerError{Cause: err}
	}
	return nil
}

func (rs *redisStorage) GetRule(id string) (*model.Rule, error) {
	ctx := context.Background()
	val, err := rs.redisClient.Get(ctx, rs.getNamespaceKey(RULE_KEY, id)).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "rule", Id: id}
		}
		return nil, persistence.StorageLayerError{Cause: err}
	}
	return rs.ruleEncDec.Decode([]byte(val))
}

func (rs *redisStorage) DeleteRule(id string) error {
	r, err := rs.GetRule(id)
	if err != nil {
		return err
	}
	ctx := context.Background()
	pipe := rs.redisClient.TxPipeline()
	pipe.Del(ctx, rs.getNamespaceKey(RULE_KEY, id))
	pipe.SRem(ctx, rs.getNamespaceKey(FORM_RULES_KEY, r.FormId), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.StorageLayerError{Cause: err}
	}
	return nil
}

func (rs *redisStorage) GetRulesByForm(formId string) ([]*model.Rule, error) {
	ctx := context.Background()
	ids, err := rs.redisClient.SMembers(ctx, rs.getNamespaceKey(FORM_RULES_KEY, formId)).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Cause: err}
	}
	rules := make([]*model.Rule, 0, len(ids))
	for _, id := range ids {
		r, err := rs.GetRule(id)
		if err != nil {
			if _, ok := err.(persistence.NotFoundError); ok {
				continue
			}
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func (rs *redisStorage) SavePipeline(p model.Pipeline) error {
	ctx := context.Background()
	data, err := rs.pipelineEncDec.Encode(p)
	if err != nil {
		return persistence.StorageLayerError{Cause: err}
	}
	pipe := rs.redisClient.TxPipeline()
	pipe.Set(ctx, rs.getNamespaceKey(PIPELINE_KEY, p.Id), data, 0)
	pipe.SAdd(ctx, rs.getNamespaceKey(PIPELINES_KEY), p.Id)
	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.StorageLayerError{Cause: err}
	}
	return nil
}

func (rs *redisStorage) GetPipeline(id string) (*model.Pipeline, error) {
	ctx := context.Background()
	val, err := rs.redisClient.Get(ctx, rs.getNamespaceKey(PIPELINE_KEY, id)).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "pipeline", Id: id}
		}
		return nil, persistence.StorageLayerError{Cause: err}
	}
	return rs.pipelineEncDec.Decode([]byte(val))
}

func (rs *redisStorage) DeletePipeline(id string) error {
	ctx := context.Background()
	pipe := rs.redisClient.TxPipeline()
	pipe.Del(ctx, rs.getNamespaceKey(PIPELINE_KEY, id))
	pipe.SRem(ctx, rs.getNamespaceKey(PIPELINES_KEY), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.StorageLayerError{Cause: err}
	}
	return nil
}

func (rs *redisStorage) ListPipelines() ([]*model.Pipeline, error) {
	ctx := context.Background()
	ids, err := rs.redisClient.SMembers(ctx, rs.getNamespaceKey(PIPELINES_KEY)).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Cause: err}
	}
	pipelines := make([]*model.Pipeline, 0, len(ids))
	for _, id := range ids {
		p, err := rs.GetPipeline(id)
		if err != nil {
			if _, ok := err.(persistence.NotFoundError); ok {
				continue
			}
			return nil, err
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, nil
}

func (rs *redisStorage) SaveCard(c model.Card) error {
	ctx := context.Background()
	data, err := rs.cardEncDec.Encode(c)
	if err != nil {
		return persistence.StorageLayerError{Cause: err}
	}
	// A stage change must drop the card from its previous stage index.
	prev, err := rs.GetCard(c.Id)
	if err != nil {
		if _, ok := err.(persistence.NotFoundError); !ok {
			return err
		}
		prev = nil
	}
	pipe := rs.redisClient.TxPipeline()
	if prev != nil && prev.CurrentStageId != c.CurrentStageId {
		pipe.ZRem(ctx, rs.getNamespaceKey(STAGE_CARDS_KEY, c.PipelineId, prev.CurrentStageId), c.Id)
	}
	pipe.Set(ctx, rs.getNamespaceKey(CARD_KEY, c.Id), data, 0)
	pipe.ZAdd(ctx, rs.getNamespaceKey(STAGE_CARDS_KEY, c.PipelineId, c.CurrentStageId), rd.Z{
		Score:  float64(c.Position),
		Member: c.Id,
	})
	pipe.SAdd(ctx, rs.getNamespaceKey(PIPELINE_CARDS_KEY, c.PipelineId), c.Id)
	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.StorageLayerError{Cause: err}
	}
	return nil
}

func (rs *redisStorage) GetCard(id string) (*model.Card, error) {
	ctx := context.Background()
	val, err := rs.redisClient.Get(ctx, rs.getNamespaceKey(CARD_KEY, id)).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "card", Id: id}
		}
		return nil, persistence.StorageLayerError{Cause: err}
	}
	return rs.cardEncDec.Decode([]byte(val))
}

func (rs *redisStorage) GetCardsByStage(pipelineId string, stageId string) ([]*model.Card, error) {
	ctx := context.Background()
	ids, err := rs.redisClient.ZRange(ctx, rs.getNamespaceKey(STAGE_CARDS_KEY, pipelineId, stageId), 0, -1).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Cause: err}
	}
	return rs.getCards(ids)
}

func (rs *redisStorage) GetCardsByPipeline(pipelineId string) ([]*model.Card, error) {
	ctx := context.Background()
	ids, err := rs.redisClient.SMembers(ctx, rs.getNamespaceKey(PIPELINE_CARDS_KEY, pipelineId)).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Cause: err}
	}
	return rs.getCards(ids)
}

func (rs *redisStorage) getCards(ids []string) ([]*model.Card, error) {
	cards := make([]*model.Card, 0, len(ids))
	for _, id := range ids {
		c, err := rs.GetCard(id)
		if err != nil {
			if _, ok := err.(persistence.NotFoundError); ok {
				continue
			}
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func (rs *redisStorage) SaveTransition(t model.StageTransition) error {
	ctx := context.Background()
	data, err := rs.transitionEncDec.Encode(t)
	if err != nil {
		return persistence.StorageLayerError{Cause: err}
	}
	err = rs.redisClient.RPush(ctx, rs.getNamespaceKey(TRANSITIONS_KEY, t.CardId), data).Err()
	if err != nil {
		return persistence.StorageLayerError{Cause: err}
	}
	return nil
}

func (rs *redisStorage) GetTransitionsByCard(cardId string) ([]*model.StageTransition, error) {
	ctx := context.Background()
	vals, err := rs.redisClient.LRange(ctx, rs.getNamespaceKey(TRANSITIONS_KEY, cardId), 0, -1).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Cause: err}
	}
	transitions := make([]*model.StageTransition, 0, len(vals))
	for _, val := range vals {
		t, err := rs.transitionEncDec.Decode([]byte(val))
		if err != nil {
			return nil, persistence.StorageLayerError{Cause: err}
		}
		transitions = append(transitions, t)
	}
	return transitions, nil
}

func (rs *redisStorage) SaveExecutionLog(l model.ExecutionLog) error {
	ctx := context.Background()
	data, err := rs.logEncDec.Encode(l)
	if err != nil {
		return persistence.StorageLayerError{Cause: err}
	}
	err = rs.redisClient.LPush(ctx, rs.getNamespaceKey(EXEC_LOGS_KEY, l.FormId), data).Err()
	if err != nil {
		return persistence.StorageLayerError{Cause: err}
	}
	return nil
}

func (rs *redisStorage) GetExecutionLogsByForm(formId string, limit int) ([]*model.ExecutionLog, error) {
	ctx := context.Background()
	end := int64(-1)
	if limit > 0 {
		end = int64(limit) - 1
	}
	vals, err := rs.redisClient.LRange(ctx, rs.getNamespaceKey(EXEC_LOGS_KEY, formId), 0, end).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Cause: err}
	}
	logs := make([]*model.ExecutionLog, 0, len(vals))
	for _, val := range vals {
		l, err := rs.logEncDec.Decode([]byte(val))
		if err != nil {
			return nil, persistence.StorageLayerError{Cause: err}
		}
		logs = append(logs, l)
	}
	return logs, nil
}
