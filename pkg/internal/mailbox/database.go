package mailbox

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MailboxRecord is one mailbox document in the database backend.
type MailboxRecord struct {
	Key       string         `json:"key" gorm:"column:mailbox_key;primaryKey;size:128"`
	Value     datatypes.JSON `json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DatabaseBackend stores mailbox documents as rows, one per key.
type DatabaseBackend struct {
	db *gorm.DB
}

func NewDatabaseBackend(db *gorm.DB) *DatabaseBackend {
	return &DatabaseBackend{db: db}
}

func (v *DatabaseBackend) Get(key string) ([]byte, error) {
	var record MailboxRecord
	if err := v.db.Where("mailbox_key = ?", key).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record.Value, nil
}

func (v *DatabaseBackend) Set(key string, value []byte) error {
	return v.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mailbox_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&MailboxRecord{
		Key:   key,
		Value: datatypes.JSON(value),
	}).Error
}

func (v *DatabaseBackend) Delete(key string) error {
	return v.db.Where("mailbox_key = ?", key).Delete(&MailboxRecord{}).Error
}

func (v *DatabaseBackend) Keys(prefix string) ([]string, error) {
	var keys []string
	if err := v.db.Model(&MailboxRecord{}).
		Where("mailbox_key LIKE ?", prefix+"%").
		Order("mailbox_key ASC").
		Pluck("mailbox_key", &keys).Error; err != nil {
		return keys, err
	}
	return keys, nil
}

func (v *DatabaseBackend) Close() error {
	return nil
}
