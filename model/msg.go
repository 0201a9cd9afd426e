package model

import "time"

type DescriptorType string

const DESCRIPTOR_TYPE_WEBHOOK DescriptorType = "webhook"
const DESCRIPTOR_TYPE_NOTIFICATION DescriptorType = "notification"

// Descriptor is an external effect queued for out-of-process delivery.
// IdempotencyKey lets the delivery layer retry without duplicating effects
// on the receiver side.
type Descriptor struct {
	Id             string         `json:"id"`
	Type           DescriptorType `json:"type"`
	IdempotencyKey string         `json:"idempotencyKey"`
	Url            string         `json:"url,omitempty"`
	Recipient      string         `json:"recipient,omitempty"`
	Subject        string         `json:"subject,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	Source         string         `json:"source"`
	CreatedAt      time.Time      `json:"createdAt"`
}
