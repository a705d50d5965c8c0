package service

import (
	"errors"
	"math"
)

// ErrInvalidTarget 在模板目标值非正数时返回，属于目录配置缺陷而非用户输入问题
var ErrInvalidTarget = errors.New("invalid mission target value")

// ComputeProgress 根据当前值与目标值计算进度百分比及是否达成。
// 百分比四舍五入（round-half-up）后在 100 封顶；target <= 0 直接失败，
// 不做除零兜底也不静默截断。纯函数，无任何 I/O。
func ComputeProgress(currentValue, targetValue float64) (int, bool, error) {
	if targetValue <= 0 {
		return 0, false, ErrInvalidTarget
	}

	if currentValue < 0 {
		currentValue = 0
	}

	percent := int(math.Floor(currentValue/targetValue*100 + 0.5))
	if percent > 100 {
		percent = 100
	}

	return percent, percent >= 100, nil
}
