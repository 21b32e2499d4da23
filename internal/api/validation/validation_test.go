package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type hourForm struct {
	Hour  string   `validate:"hhmm"`
	Hours []string `validate:"min=1,dive,hhmm"`
}

func TestHHMM(t *testing.T) {
	v := validator.New()
	if err := RegisterOn(v); err != nil {
		t.Fatalf("注册失败: %v", err)
	}

	tests := []struct {
		name    string
		form    hourForm
		wantErr bool
	}{
		{"合法 HH:MM", hourForm{Hour: "09:00", Hours: []string{"10:30"}}, false},
		{"带秒", hourForm{Hour: "23:59:59", Hours: []string{"00:00:00"}}, false},
		{"小时越界", hourForm{Hour: "24:00", Hours: []string{"10:30"}}, true},
		{"分钟越界", hourForm{Hour: "09:60", Hours: []string{"10:30"}}, true},
		{"缺少前导零", hourForm{Hour: "9:00", Hours: []string{"10:30"}}, true},
		{"列表中有非法项", hourForm{Hour: "09:00", Hours: []string{"10:30", "noon"}}, true},
		{"空列表", hourForm{Hour: "09:00"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.form)
			if (err != nil) != tt.wantErr {
				t.Errorf("期望 wantErr=%v，实际: %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegister_GinEngine(t *testing.T) {
	if err := Register(); err != nil {
		t.Fatalf("注册到 gin 校验引擎应成功: %v", err)
	}
}
