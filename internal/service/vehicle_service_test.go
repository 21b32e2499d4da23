package service

import (
	"context"
	"errors"
	"testing"

	"garage/backend/internal/dto"
	"garage/backend/internal/model"
)

func setupTestVehicleService() (VehicleService, *mockRepos) {
	repo, m := newMockRepos()
	seedUsers(m)
	seedVehicle(m, "v-1", "ABC123", "client-1")
	return NewVehicleService(repo, nopLogger()), m
}

func TestVehicleService_Register(t *testing.T) {
	svc, _ := setupTestVehicleService()
	ctx := context.Background()

	resp, err := svc.Register(ctx, "client-2", &dto.CreateVehicleRequest{
		LicensePlate: " jkl456 ",
		Brand:        "Honda",
		Model:        "Civic",
		Year:         2019,
	})
	if err != nil {
		t.Fatalf("Register 应成功: %v", err)
	}
	if resp.LicensePlate != "JKL456" {
		t.Errorf("车牌应规范化为大写，实际 %q", resp.LicensePlate)
	}
	if resp.Status != model.VehicleStatusAvailable || resp.ClientID != "client-2" {
		t.Errorf("登记结果错误: %+v", resp)
	}

	_, err = svc.Register(ctx, "client-2", &dto.CreateVehicleRequest{LicensePlate: "abc123", Brand: "x", Model: "y", Year: 2000})
	if !errors.Is(err, ErrLicensePlateExists) {
		t.Errorf("期望 ErrLicensePlateExists，实际: %v", err)
	}

	mine, _ := svc.ListMine(ctx, "client-2")
	if len(mine) != 1 {
		t.Errorf("期望 1 辆车，实际 %d", len(mine))
	}
}

func TestVehicleService_GetByID_Access(t *testing.T) {
	svc, _ := setupTestVehicleService()
	ctx := context.Background()

	tests := []struct {
		name    string
		caller  string
		role    string
		wantErr error
	}{
		{"车主", "client-1", model.RoleClient, nil},
		{"技师", "mech-1", model.RoleMechanic, nil},
		{"管理员", "admin-1", model.RoleAdmin, nil},
		{"其他客户", "client-2", model.RoleClient, ErrVehicleAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetByID(ctx, "v-1", tt.caller, tt.role)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}

	if _, err := svc.GetByID(ctx, "missing", "admin-1", model.RoleAdmin); !errors.Is(err, ErrVehicleNotFound) {
		t.Errorf("期望 ErrVehicleNotFound，实际: %v", err)
	}
}
