package tracking

import (
	"log"
	"net/http"

	"github.com/matst80/slask-fordon/pkg/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitTracking struct {
	country    string
	connection *amqp.Connection
}

const trackingTopic messaging.ChangeTopic = "tracking"

func NewRabbitTracking(url, country string) (*RabbitTracking, error) {
	ret := RabbitTracking{
		country: country,
	}
	if err := ret.connect(url); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (t *RabbitTracking) connect(url string) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return err
	}
	t.connection = conn
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	return messaging.DefineTopic(ch, messaging.GlobalPrefix, trackingTopic)
}

func (t *RabbitTracking) Close() error {
	return t.connection.Close()
}

func (t *RabbitTracking) send(data any) error {
	return messaging.SendChange(t.connection, messaging.GlobalPrefix, trackingTopic, data)
}

type BaseEvent struct {
	SessionId string `json:"session_id"`
	Country   string `json:"country,omitempty"`
	Context   string `json:"context,omitempty"`
	Event     uint16 `json:"event"`
}

type SessionEvent struct {
	*BaseEvent
	UserAgent string `json:"user_agent,omitempty"`
	Ip        string `json:"ip,omitempty"`
	Language  string `json:"language,omitempty"`
}

type SearchEvent struct {
	*BaseEvent
	Search
	Referer string `json:"referer,omitempty"`
}

func clientIp(r *http.Request) string {
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func (t *RabbitTracking) event(sessionId string, kind uint16) *BaseEvent {
	return &BaseEvent{Event: kind, SessionId: sessionId, Country: t.country, Context: "inventory"}
}

func (t *RabbitTracking) TrackSession(sessionId string, r *http.Request) {
	err := t.send(SessionEvent{
		BaseEvent: t.event(sessionId, 0),
		Language:  r.Header.Get("Accept-Language"),
		UserAgent: r.UserAgent(),
		Ip:        clientIp(r),
	})
	if err != nil {
		log.Println("Error sending session event: ", err)
	}
}

func (t *RabbitTracking) TrackSearch(sessionId string, search Search, r *http.Request) {
	err := t.send(SearchEvent{
		BaseEvent: t.event(sessionId, 1),
		Search:    search,
		Referer:   r.Header.Get("Referer"),
	})
	if err != nil {
		log.Println("Error sending search event: ", err)
	}
}
