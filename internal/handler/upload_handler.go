package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UploadIcon 处理任务图标上传请求（后台）
func (a *API) UploadIcon(c *gin.Context) {
	file, err := c.FormFile("icon")
	if err != nil {
		respondError(c, http.StatusBadRequest, "未找到上传的图片")
		return
	}

	// 检查文件类型
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(c, http.StatusBadRequest, "只允许上传图片文件")
		return
	}

	if err := os.MkdirAll(a.uploadDir, 0755); err != nil {
		respondError(c, http.StatusInternalServerError, "创建上传目录失败")
		return
	}

	// 生成唯一文件名
	ext := filepath.Ext(file.Filename)
	newFilename := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.New().String(), ext)
	filePath := filepath.Join(a.uploadDir, newFilename)

	if err := c.SaveUploadedFile(file, filePath); err != nil {
		respondError(c, http.StatusInternalServerError, "保存文件失败")
		return
	}

	fileURL := fmt.Sprintf("%s/%s", strings.TrimRight(a.uploadURL, "/"), newFilename)
	c.JSON(http.StatusOK, gin.H{
		"url": fileURL,
	})
}
