package api

import (
	"errors"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/mailbox"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

type messageRequest struct {
	From       uint               `json:"from" validate:"required"`
	Kind       models.MessageKind `json:"kind" validate:"required,oneof=text voice image system"`
	Content    string             `json:"content"`
	Attachment string             `json:"attachment"`
	Audio      []byte             `json:"audio"`
	MIME       string             `json:"mime"`
	Duration   float64            `json:"duration"`
	Waveform   []float64          `json:"waveform"`
}

func (v *Server) buildMessage(data messageRequest) (models.Message, error) {
	sender, err := v.directory.GetAccount(data.From)
	if err != nil {
		return models.Message{}, fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	var message models.Message
	switch data.Kind {
	case models.MessageKindText:
		message, err = services.NewTextMessage(sender, data.Content)
	case models.MessageKindVoice:
		message, err = services.NewVoiceMessage(sender, data.Audio, data.MIME, time.Duration(data.Duration*float64(time.Second)), data.Waveform)
	case models.MessageKindImage:
		message, err = services.NewImageMessage(sender, data.Attachment, data.Content)
	case models.MessageKindSystem:
		message, err = services.NewSystemMessage(data.Content)
	default:
		err = fmt.Errorf("message kind %q cannot be sent here", data.Kind)
	}
	if err != nil {
		return message, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return message, nil
}

func (v *Server) sendDirectMessage(c *fiber.Ctx) error {
	to, err := exts.ParamsUint(c, "to")
	if err != nil {
		return err
	}

	var data messageRequest
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	} else if _, err := v.directory.GetAccount(to); err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	message, err := v.buildMessage(data)
	if err != nil {
		return err
	}

	if err := v.router.SendDirect(data.From, to, message); err != nil {
		return deliveryError(err)
	}

	return c.JSON(message)
}

func (v *Server) sendGroupMessage(c *fiber.Ctx) error {
	group, err := exts.ParamsUint(c, "group")
	if err != nil {
		return err
	}

	var data messageRequest
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	message, err := v.buildMessage(data)
	if err != nil {
		return err
	}

	result, err := v.router.SendGroup(data.From, group, message)
	if err != nil && errors.Is(err, services.ErrPartialFanout) {
		return c.Status(fiber.StatusMultiStatus).JSON(fiber.Map{
			"message": message,
			"result":  result,
			"error":   err.Error(),
		})
	} else if err != nil {
		return deliveryError(err)
	}

	return c.JSON(fiber.Map{
		"message": message,
		"result":  result,
	})
}

func deliveryError(err error) error {
	switch {
	case errors.Is(err, mailbox.ErrInvalidMessage):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
