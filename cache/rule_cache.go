package cache

import (
	"time"

	"github.com/formforge/ruleengine/model"
	gocache "github.com/patrickmn/go-cache"
)

// RuleCache keeps the active rule set of a form in memory so an evaluation
// pass does not hit storage on every request. Entries expire after the TTL
// and are invalidated on any rule write.
type RuleCache struct {
	cache *gocache.Cache
}

func NewRuleCache(ttl time.Duration) *RuleCache {
	return &RuleCache{
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (rc *RuleCache) Get(formId string) ([]*model.Rule, bool) {
	val, found := rc.cache.Get(formId)
	if !found {
		return nil, false
	}
	rules, ok := val.([]*model.Rule)
	return rules, ok
}

func (rc *RuleCache) Set(formId string, rules []*model.Rule) {
	rc.cache.SetDefault(formId, rules)
}

func (rc *RuleCache) Invalidate(formId string) {
	rc.cache.Delete(formId)
}
