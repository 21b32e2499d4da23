package validation

import (
	"fmt"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// hhmmPattern 接受 "HH:MM" 与 "HH:MM:SS"，秒由 Service 层截断
var hhmmPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`)

// Register 在 gin 默认校验器上注册自定义 tag，启动时调用一次
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("gin 校验引擎类型异常: %T", binding.Validator.Engine())
	}
	return RegisterOn(v)
}

// RegisterOn 供测试直接注册到独立的 validator 实例
func RegisterOn(v *validator.Validate) error {
	if err := v.RegisterValidation("hhmm", validateHHMM); err != nil {
		return fmt.Errorf("注册 hhmm 校验失败: %w", err)
	}
	return nil
}

func validateHHMM(fl validator.FieldLevel) bool {
	return hhmmPattern.MatchString(fl.Field().String())
}
