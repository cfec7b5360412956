package api

import (
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

func (v *Server) upgradeEvents(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	origin := c.Query("origin")
	if len(origin) == 0 {
		origin = uuid.NewString()
	}
	c.Locals("origin", origin)
	c.Locals("key", c.Query("key", services.AnyKey))
	return c.Next()
}

// eventGateway relays change events to a websocket client. Events the client
// sends are published to every other context under its origin.
func (v *Server) eventGateway(c *websocket.Conn) {
	origin := c.Locals("origin").(string)
	key := c.Locals("key").(string)

	outbox := make(chan models.ChangeEvent, 32)
	unsubscribe := v.notifier.Subscribe(origin, key, func(event models.ChangeEvent) {
		select {
		case outbox <- event:
		default:
			log.Warn().Str("origin", origin).Str("key", event.Key).Msg("Event client is too slow, dropping event...")
		}
	})

	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event := <-outbox:
				packet, _ := jsoniter.Marshal(event)
				if err := c.WriteMessage(websocket.TextMessage, packet); err != nil {
					return
				}
			case <-quit:
				return
			}
		}
	}()

	for {
		var event models.ChangeEvent
		_, packet, err := c.ReadMessage()
		if err != nil {
			break
		} else if err := jsoniter.Unmarshal(packet, &event); err != nil || len(event.Key) == 0 {
			log.Debug().Str("origin", origin).Msg("Ignored malformed event from client...")
			continue
		}
		v.notifier.Publish(origin, event.Key, event.NewValue)
	}

	unsubscribe()
	close(quit)
	<-done
}
