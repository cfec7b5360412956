package api

import (
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/http/exts"
	"github.com/gofiber/fiber/v2"
)

func (v *Server) getDirectHistory(c *fiber.Ctx) error {
	a, err := exts.ParamsUint(c, "a")
	if err != nil {
		return err
	}
	b, err := exts.ParamsUint(c, "b")
	if err != nil {
		return err
	}

	routes, err := v.router.Ledger().DirectHistory(a, b)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(routes)
}

func (v *Server) getGroupHistory(c *fiber.Ctx) error {
	group, err := exts.ParamsUint(c, "group")
	if err != nil {
		return err
	}

	routes, err := v.router.Ledger().GroupHistory(group)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(routes)
}
