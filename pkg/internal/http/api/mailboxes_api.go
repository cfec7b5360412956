package api

import (
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/mailbox"
	"github.com/gofiber/fiber/v2"
)

func mailboxParams(c *fiber.Ctx) (owner, counterpart uint, kind mailbox.Kind, err error) {
	if owner, err = exts.ParamsUint(c, "owner"); err != nil {
		return
	}
	if counterpart, err = exts.ParamsUint(c, "counterpart"); err != nil {
		return
	}
	var ok bool
	if kind, ok = mailbox.ParseKind(c.Params("kind")); !ok {
		err = fiber.NewError(fiber.StatusBadRequest, "kind must be friend or group")
	}
	return
}

func (v *Server) listConversations(c *fiber.Ctx) error {
	owner, err := exts.ParamsUint(c, "owner")
	if err != nil {
		return err
	}

	conversations, err := v.router.Store().Conversations(owner)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(conversations)
}

func (v *Server) listMailbox(c *fiber.Ctx) error {
	owner, counterpart, kind, err := mailboxParams(c)
	if err != nil {
		return err
	}

	messages, err := v.router.Store().List(owner, counterpart, kind)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"key":   mailbox.Key(owner, counterpart, kind),
		"count": len(messages),
		"data":  messages,
	})
}

func (v *Server) clearMailbox(c *fiber.Ctx) error {
	owner, counterpart, kind, err := mailboxParams(c)
	if err != nil {
		return err
	}

	if err := v.router.Store().Clear(owner, counterpart, kind); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.SendStatus(fiber.StatusOK)
}

func (v *Server) clearAllMailboxes(c *fiber.Ctx) error {
	owner, err := exts.ParamsUint(c, "owner")
	if err != nil {
		return err
	}

	if err := v.router.Store().ClearAll(owner); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.SendStatus(fiber.StatusOK)
}
