package services

import "github.com/Dosada05/run-contest/models"

// EventPublisher receives events after the operation that produced them has
// committed. Implementations must not block.
type EventPublisher interface {
	Publish(event models.ContestEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(models.ContestEvent) {}

// NoopPublisher drops every event.
var NoopPublisher EventPublisher = noopPublisher{}
