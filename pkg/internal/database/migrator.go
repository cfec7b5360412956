package database

import (
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/mailbox"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.Account{},
	&models.Group{},
	&models.RouteRecord{},
	&mailbox.MailboxRecord{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}
