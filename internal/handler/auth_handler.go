package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/vitalog/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const dateFormat = "2006-01-02"

// sessionUserKey 是会话中保存用户 ID 的键
const sessionUserKey = "user_id"

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login 处理用户登录：校验 bcrypt 密码并写入会话
func (a *API) Login(c *gin.Context) {
	var payload loginPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	var user db.User
	if err := a.db.Where("username = ?", strings.TrimSpace(payload.Username)).First(&user).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "用户名或密码错误")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "用户名或密码错误")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"nickname": user.Nickname,
			"timezone": user.Timezone,
		},
	})
}

// Logout 处理用户登出
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.JSON(http.StatusOK, gin.H{"logout": true})
}

// AuthRequired 是一个简单的认证中间件：未登录统一返回 401
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if session.Get(sessionUserKey) == nil {
			respondError(c, http.StatusUnauthorized, "请先登录")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminRequired 在 AuthRequired 之后使用，仅放行管理员账号
func (a *API) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.currentUser(c)
		if err != nil || user.Role != db.RoleAdmin {
			respondError(c, http.StatusForbidden, "没有管理权限")
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentUser 从会话中还原当前用户
func (a *API) currentUser(c *gin.Context) (*db.User, error) {
	session := sessions.Default(c)
	raw := session.Get(sessionUserKey)
	userID, ok := raw.(uint)
	if !ok {
		return nil, errors.New("no user in session")
	}

	var user db.User
	if err := a.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("session user no longer exists")
		}
		return nil, err
	}
	return &user, nil
}

// resolveUserDate 在接口边界一次性把请求中的日期解析成用户本地日历日；
// value 为空时取用户时区的今天。引擎内部不再做任何时区推断。
func resolveUserDate(user *db.User, value string) (time.Time, error) {
	loc := time.Local
	if tz := strings.TrimSpace(user.Timezone); tz != "" {
		if parsed, err := time.LoadLocation(tz); err == nil {
			loc = parsed
		}
	}

	value = strings.TrimSpace(value)
	if value == "" {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}

	parsed, err := time.ParseInLocation(dateFormat, value, loc)
	if err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}
