package api

import (
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Server carries what the handlers need, the router and its collaborators.
type Server struct {
	router    *services.Router
	clips     *services.ClipAdapter
	directory services.Directory
	notifier  services.Notifier
}

func NewServer(router *services.Router, clips *services.ClipAdapter, directory services.Directory, notifier services.Notifier) *Server {
	return &Server{
		router:    router,
		clips:     clips,
		directory: directory,
		notifier:  notifier,
	}
}

func (v *Server) MapAPIs(app *fiber.App, baseURL string) {
	api := app.Group(baseURL).Name("API")
	{
		api.Post("/direct/:to/messages", v.sendDirectMessage)
		api.Post("/groups/:group/messages", v.sendGroupMessage)

		mailboxes := api.Group("/mailboxes/:owner").Name("Mailboxes API")
		{
			mailboxes.Get("/", v.listConversations)
			mailboxes.Delete("/", v.clearAllMailboxes)
			mailboxes.Get("/:kind/:counterpart", v.listMailbox)
			mailboxes.Delete("/:kind/:counterpart", v.clearMailbox)
		}

		routes := api.Group("/routes").Name("Routes API")
		{
			routes.Get("/direct/:a/:b", v.getDirectHistory)
			routes.Get("/groups/:group", v.getGroupHistory)
		}

		clips := api.Group("/clips").Name("Clips API")
		{
			clips.Post("/preview", v.previewClip)
			clips.Post("/share", v.shareClip)
		}

		api.Get("/events", v.upgradeEvents, websocket.New(v.eventGateway))
	}
}
