package api

import (
	"errors"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

type clipRequest struct {
	From     uint                  `json:"from" validate:"required"`
	Platform string                `json:"platform" validate:"required"`
	Clip     map[string]any        `json:"clip" validate:"required"`
	Reaction *services.RawReaction `json:"reaction"`
}

func (v clipRequest) platform() (models.Platform, error) {
	platform, ok := models.ParsePlatform(v.Platform)
	if !ok {
		return platform, fiber.NewError(fiber.StatusBadRequest, "platform must be netflix or prime")
	}
	return platform, nil
}

func clipError(err error) error {
	if errors.Is(err, services.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return fiber.NewError(fiber.StatusBadRequest, err.Error())
}

func (v *Server) previewClip(c *fiber.Ctx) error {
	var data clipRequest
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}
	platform, err := data.platform()
	if err != nil {
		return err
	}

	sender, err := v.directory.GetAccount(data.From)
	if err != nil {
		return clipError(err)
	}

	result, err := v.clips.Adapt(sender, platform, data.Clip, data.Reaction)
	if err != nil {
		return clipError(err)
	}

	return c.JSON(fiber.Map{
		"result": result,
		"link":   models.DeepLink(result.Message.ClipPayload.PlatformData),
	})
}

func (v *Server) shareClip(c *fiber.Ctx) error {
	var data struct {
		clipRequest
		Targets services.ShareTargets `json:"targets"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	} else if len(data.Targets.Friends)+len(data.Targets.Groups) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "at least one friend or group is required")
	}
	platform, err := data.platform()
	if err != nil {
		return err
	}

	result, err := v.clips.Share(data.From, platform, data.Clip, data.Reaction, data.Targets)
	if err != nil {
		return clipError(err)
	}

	status := fiber.StatusOK
	if len(result.Failures) > 0 {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(fiber.Map{
		"result": result,
		"link":   models.DeepLink(result.Message.ClipPayload.PlatformData),
	})
}
