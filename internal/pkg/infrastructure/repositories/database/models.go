package database

import (
	"time"
)

type reading struct {
	ID         string    `gorm:"primaryKey;column:id"`
	DeviceID   string    `gorm:"column:device_id;index"`
	Value      int64     `gorm:"column:value"`
	ObservedAt time.Time `gorm:"column:created_at;index"`
}

func (reading) TableName() string {
	return "gas_readings"
}

type alert struct {
	ID        string    `gorm:"primaryKey;column:id"`
	DeviceID  string    `gorm:"column:device_id;index"`
	TierRank  int       `gorm:"column:tier_rank"`
	Level     string    `gorm:"column:level"`
	Value     int64     `gorm:"column:value"`
	Message   string    `gorm:"column:message"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (alert) TableName() string {
	return "alerts"
}
