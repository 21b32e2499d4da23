package service

import (
	"context"
	"errors"
	"testing"

	"garage/backend/internal/model"
)

func TestUserService_GetByID(t *testing.T) {
	repo, m := newMockRepos()
	seedUsers(m)
	svc := NewUserService(repo, nopLogger())

	user, err := svc.GetByID(context.Background(), "mech-1")
	if err != nil {
		t.Fatalf("GetByID 应成功: %v", err)
	}
	if user.Role != model.RoleMechanic || user.Email != "mech-1@garage.test" {
		t.Errorf("用户信息错误: %+v", user)
	}

	if _, err := svc.GetByID(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestUserService_ListMechanics(t *testing.T) {
	repo, m := newMockRepos()
	seedUsers(m)
	svc := NewUserService(repo, nopLogger())

	list, err := svc.ListMechanics(context.Background())
	if err != nil {
		t.Fatalf("ListMechanics 应成功: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("期望 2 名技师，实际 %d", len(list))
	}
	for _, u := range list {
		if u.Role != model.RoleMechanic {
			t.Errorf("混入了非技师: %+v", u)
		}
	}

	m.user.listError = errMock
	if _, err := svc.ListMechanics(context.Background()); !errors.Is(err, errMock) {
		t.Errorf("期望仓储错误透传，实际: %v", err)
	}
}
