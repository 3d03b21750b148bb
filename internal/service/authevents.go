package service

import (
	"github.com/asaskevich/EventBus"
)

// TopicAuthState топик шины для событий смены состояния аутентификации
const TopicAuthState = "auth:state"

type AuthEventType string

const (
	AuthSignedIn         AuthEventType = "SIGNED_IN"
	AuthSignedOut        AuthEventType = "SIGNED_OUT"
	AuthPasswordRecovery AuthEventType = "PASSWORD_RECOVERY"
	// AuthUserUpdated изменилась роль или статус продавца, роль надо пересчитать
	AuthUserUpdated AuthEventType = "USER_UPDATED"
)

// AuthEvent событие смены состояния identity
type AuthEvent struct {
	Type      AuthEventType
	ProfileID int64
}

// NewEventBus шина внутрипроцессных событий
func NewEventBus() EventBus.Bus {
	return EventBus.New()
}

func publishAuthEvent(bus EventBus.Bus, typ AuthEventType, profileID int64) {
	if bus == nil {
		return
	}
	bus.Publish(TopicAuthState, AuthEvent{Type: typ, ProfileID: profileID})
}
