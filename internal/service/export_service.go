package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"garage/backend/internal/model"
	"garage/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoItems      = errors.New("暂无库存数据可导出")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// appointmentSlot 日历中每个预约占用的时长
const appointmentSlot = 60 * time.Minute

// ExportService 导出业务接口
//
// 导出内容以内存 buffer 返回，由 Handler 设置响应头后写出：
//   - 库存表 (.xlsx)：SKU、名称、数量、最低库存、单价、是否低库存
//   - 技师日历 (.ics)：今天起 pending / accepted 的预约
type ExportService interface {
	ExportInventory(ctx context.Context) (*bytes.Buffer, string, error)
	ExportCalendar(ctx context.Context, mechanicID string) ([]byte, string, error)
}

type exportService struct {
	repo   *repository.Repository
	clock  Clock
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, clock Clock, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, clock: clock, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportInventory — 库存表
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportInventory(ctx context.Context) (*bytes.Buffer, string, error) {
	items, err := s.repo.Inventory.List(ctx)
	if err != nil {
		s.logger.Error("查询库存失败", zap.Error(err))
		return nil, "", err
	}
	if len(items) == 0 {
		return nil, "", ErrExportNoItems
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "库存"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 16)
	f.SetColWidth(sheetName, "B", "B", 28)
	f.SetColWidth(sheetName, "C", "F", 12)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	lowStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F8CBAD"}, Pattern: 1},
	})

	headers := []string{"SKU", "名称", "数量", "最低库存", "单价", "低库存"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	for i, item := range items {
		row := i + 2
		price, _ := item.Price.Float64()
		f.SetCellValue(sheetName, cell("A", row), item.SKU)
		f.SetCellValue(sheetName, cell("B", row), item.Name)
		f.SetCellValue(sheetName, cell("C", row), item.Quantity)
		f.SetCellValue(sheetName, cell("D", row), item.MinStock)
		f.SetCellValue(sheetName, cell("E", row), price)
		if item.IsLowStock() {
			f.SetCellValue(sheetName, cell("F", row), "是")
			f.SetCellStyle(sheetName, cell("A", row), cell("F", row), lowStyle)
		} else {
			f.SetCellValue(sheetName, cell("F", row), "否")
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("库存_%s.xlsx", s.clock.today())
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar — 技师预约日历
// ═══════════════════════════════════════════════════════════
//
// 预约日期与时间按门店时区解释，每个预约占用 60 分钟。

func (s *exportService) ExportCalendar(ctx context.Context, mechanicID string) ([]byte, string, error) {
	appts, err := s.repo.Appointment.ListActiveByMechanicFrom(ctx, mechanicID, s.clock.today())
	if err != nil {
		s.logger.Error("查询技师预约失败", zap.String("mechanic_id", mechanicID), zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//garage//appointments//CN")
	cal.SetXWRTimezone(s.clock.Location.String())

	stamp := s.clock.Now().UTC()
	for i := range appts {
		a := &appts[i]
		start, err := appointmentStart(a, s.clock.Location)
		if err != nil {
			s.logger.Warn("跳过时间无效的预约", zap.String("appointment_id", a.AppointmentID), zap.Error(err))
			continue
		}

		event := cal.AddEvent(a.AppointmentID + "@garage")
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(start.Add(appointmentSlot))
		event.SetSummary(appointmentSummary(a))
		if a.Description != nil {
			event.SetDescription(*a.Description)
		}
		if a.Status == model.AppointmentStatusPending {
			event.SetStatus(ics.ObjectStatusTentative)
		} else {
			event.SetStatus(ics.ObjectStatusConfirmed)
		}
	}

	filename := fmt.Sprintf("appointments_%s.ics", s.clock.today())
	return []byte(cal.Serialize()), filename, nil
}

// appointmentStart 组合预约日期与 "HH:MM" 得到门店时区下的开始时间
func appointmentStart(a *model.Appointment, loc *time.Location) (time.Time, error) {
	hour := normalizeHour(a.Hour)
	if !hourPattern.MatchString(hour) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidHourFormat, a.Hour)
	}
	minutes := hourMinutes(hour)
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), minutes/60, minutes%60, 0, 0, loc), nil
}

func appointmentSummary(a *model.Appointment) string {
	summary := "维修预约"
	if a.Vehicle != nil {
		summary += " " + a.Vehicle.LicensePlate
	}
	if a.Client != nil {
		summary += " · " + a.Client.Name
	}
	return summary
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
