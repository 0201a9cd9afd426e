package action

import (
	"fmt"
	"time"

	"github.com/formforge/ruleengine/model"
	"github.com/google/uuid"
)

var _ Action = new(notificationAction)
var _ Action = new(webhookAction)

type notificationAction struct {
	baseAction
}

func (a *notificationAction) Execute(record map[string]any, ctx *Context) (model.ActionResult, *model.Descriptor) {
	recipient := resolveTemplate(a.stringParam("recipient"), record)
	if recipient == "" {
		return errorResult(a.actType, "", fmt.Errorf("send_notification requires a recipient")), nil
	}
	descriptor := &model.Descriptor{
		Id:             uuid.New().String(),
		Type:           model.DESCRIPTOR_TYPE_NOTIFICATION,
		IdempotencyKey: uuid.New().String(),
		Recipient:      recipient,
		Subject:        resolveTemplate(a.stringParam("subject"), record),
		Payload: map[string]any{
			"message": resolveTemplate(a.stringParam("message"), record),
			"formId":  ctx.FormId,
		},
		Source:    ctx.RuleId,
		CreatedAt: time.Now(),
	}
	return model.ActionResult{
		Type:   a.actType,
		Status: model.ACTION_STATUS_QUEUED,
		Output: map[string]any{"descriptorId": descriptor.Id, "recipient": recipient},
	}, descriptor
}

type webhookAction struct {
	baseAction
}

func (a *webhookAction) Execute(record map[string]any, ctx *Context) (model.ActionResult, *model.Descriptor) {
	url := a.stringParam("url")
	if url == "" {
		return errorResult(a.actType, "", fmt.Errorf("webhook requires a url")), nil
	}
	payload := map[string]any{
		"formId": ctx.FormId,
		"ruleId": ctx.RuleId,
		"record": record,
	}
	if extra, ok := a.params["payload"].(map[string]any); ok {
		for k, v := range extra {
			payload[k] = resolveValue(v, record)
		}
	}
	descriptor := &model.Descriptor{
		Id:             uuid.New().String(),
		Type:           model.DESCRIPTOR_TYPE_WEBHOOK,
		IdempotencyKey: uuid.New().String(),
		Url:            url,
		Payload:        payload,
		Source:         ctx.RuleId,
		CreatedAt:      time.Now(),
	}
	return model.ActionResult{
		Type:   a.actType,
		Status: model.ACTION_STATUS_QUEUED,
		Output: map[string]any{"descriptorId": descriptor.Id, "url": url},
	}, descriptor
}
