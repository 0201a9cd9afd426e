package config

type StorageType string

type QueueType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

const QUEUE_TYPE_REDIS QueueType = "redis"
const QUEUE_TYPE_INMEM QueueType = "memory"

type Config struct {
	RedisConfig                RedisStorageConfig
	RedisQueueConfig           RedisQueueConfig
	HttpPort                   int
	StorageType                StorageType
	QueueType                  QueueType
	RuleCacheTTLSeconds        int
	SlaScanIntervalSeconds     int
	DeliveryBatchSize          int
	DeliveryCapacity           int
	DeliveryPollIntervalMillis int
	DeliveryMaxRetries         int
	AuditLogFile               string
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
}

type RedisQueueConfig struct {
	Addrs     []string
	Namespace string
}
