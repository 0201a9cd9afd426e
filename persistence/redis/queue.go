package redis

import (
	"context"
	"errors"

	"github.com/formforge/ruleengine/logger"
	"github.com/formforge/ruleengine/model"
	"github.com/formforge/ruleengine/persistence"
	"github.com/formforge/ruleengine/util"
	rd "github.com/go-redis/redis/v9"
	"go.uber.org/zap"
)

const DELIVERY_QUEUE_KEY string = "DELIVERY_QUEUE"

var _ persistence.DeliveryQueue = new(redisDeliveryQueue)

type redisDeliveryQueue struct {
	baseDao
	encDec util.EncoderDecoder[model.Descriptor]
}

func NewRedisDeliveryQueue(conf Config) *redisDeliveryQueue {
	return &redisDeliveryQueue{
		baseDao: *newBaseDao(conf),
		encDec:  util.NewJsonEncoderDecoder[model.Descriptor](),
	}
}

func (rq *redisDeliveryQueue) Push(d model.Descriptor) error {
	ctx := context.Background()
	data, err := rq.encDec.Encode(d)
	if err != nil {
		return persistence.StorageLayerError{Cause: err}
	}
	queueName := rq.getNamespaceKey(DELIVERY_QUEUE_KEY)
	err = rq.redisClient.LPush(ctx, queueName, data).Err()
	if err != nil {
		logger.Error("error while push to redis list", zap.String("queue", queueName), zap.Error(err))
		return persistence.StorageLayerError{Cause: err}
	}
	return nil
}

func (rq *redisDeliveryQueue) Pop(batchSize int) ([]model.Descriptor, error) {
	ctx := context.Background()
	queueName := rq.getNamespaceKey(DELIVERY_QUEUE_KEY)
	res, err := rq.redisClient.RPopCount(ctx, queueName, batchSize).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return []model.Descriptor{}, nil
		}
		logger.Error("error while pop from redis list", zap.String("queue", queueName), zap.Error(err))
		return nil, persistence.StorageLayerError{Cause: err}
	}
	descriptors := make([]model.Descriptor, 0, len(res))
	for _, item := range res {
		d, err := rq.encDec.Decode([]byte(item))
		if err != nil {
			logger.Error("dropping undecodable descriptor", zap.Error(err))
			continue
		}
		descriptors = append(descriptors, *d)
	}
	return descriptors, nil
}
