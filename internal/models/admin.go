package models

import (
	"golang.org/x/crypto/bcrypt"
)

// Admin 平台管理员
type Admin struct {
	BaseModel
	Email        string `json:"email" gorm:"uniqueIndex;not null;size:255"`
	PasswordHash string `json:"-" gorm:"column:password;not null;size:255"`
	Name         string `json:"name" gorm:"not null;size:100;default:'Super Admin'"`
	Role         string `json:"role" gorm:"size:50;default:'super_admin'"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`
}

// TableName 表名
func (a *Admin) TableName() string {
	return "admins"
}

// 管理员角色常量
const (
	AdminRoleSuperAdmin = "super_admin"
)

// SetPassword 设置密码
func (a *Admin) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码
func (a *Admin) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password))
	return err == nil
}
