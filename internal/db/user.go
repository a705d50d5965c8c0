package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型
// Timezone 保存 IANA 时区名，接口层用它把请求日期解析成用户本地日历日
type User struct {
	gorm.Model
	Username string `gorm:"unique;not null"`
	Password string `gorm:"not null"`
	Nickname string
	Timezone string `gorm:"default:'Asia/Shanghai'"`
	Role     string `gorm:"default:'member'"`
}

// 用户角色常量：admin 可维护任务目录，member 只能接取任务
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// EnsureUser 存在性检查：若提供的用户名与密码均非空且不存在对应账号，
// 则创建一个 bcrypt 哈希的管理员用户（用于首次部署引导）。
func EnsureUser(username, password, timezone string) error {
	trimmedUser := strings.TrimSpace(username)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedUser == "" || trimmedPassword == "" {
		return nil
	}

	if DB == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := DB.Where("username = ?", trimmedUser).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		user := User{Username: trimmedUser, Password: string(hashed), Role: RoleAdmin}
		if tz := strings.TrimSpace(timezone); tz != "" {
			user.Timezone = tz
		}
		return DB.Create(&user).Error
	}

	return nil
}
