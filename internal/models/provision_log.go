package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProvisionLog 学校schema开通记录
type ProvisionLog struct {
	ID         uint              `json:"id" gorm:"primarykey"`
	SchoolID   uint              `json:"school_id" gorm:"not null;index"`
	SchemaName string            `json:"schema_name" gorm:"size:63"`
	Trigger    string            `json:"trigger" gorm:"column:trigger_source;size:20"`
	Status     string            `json:"status" gorm:"size:20;index"`
	Error      string            `json:"error,omitempty" gorm:"type:text"`
	DurationMs int64             `json:"duration_ms"`
	Details    datatypes.JSONMap `json:"details"`
	CreatedAt  time.Time         `json:"created_at"`
}

// TableName 表名
func (l *ProvisionLog) TableName() string {
	return "provision_logs"
}

// 开通触发来源
const (
	ProvisionTriggerCreate    = "create"
	ProvisionTriggerManual    = "manual"
	ProvisionTriggerReconcile = "reconcile"
)

// 开通结果
const (
	ProvisionStatusSuccess = "success"
	ProvisionStatusFailed  = "failed"
)
