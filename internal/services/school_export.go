package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"schoolhub/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheetName = "Schools"

// SchoolExportHeader 导出表头，不包含数据库密码
var SchoolExportHeader = []string{
	"ID",
	"Code",
	"Name",
	"Subdomain",
	"Principal",
	"Email",
	"Phone",
	"Established Year",
	"Schema",
	"Database",
	"DB Host",
	"DB Port",
	"Active",
	"Setup Completed",
	"Provision Attempts",
	"Created At",
}

var exportColumnWidths = []float64{8, 15, 30, 20, 22, 28, 18, 16, 22, 24, 22, 10, 10, 16, 18, 22}

// Export 按筛选条件导出学校列表为 xlsx
func (s *SchoolService) Export(ctx context.Context, f ListFilter) ([]byte, error) {
	schools, err := s.ListAll(ctx, f)
	if err != nil {
		return nil, err
	}
	return GenerateSchoolExport(schools)
}

// GenerateSchoolExport 生成学校导出 Excel 文件，schools 为空时只有表头
func GenerateSchoolExport(schools []*models.School) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range SchoolExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(exportSheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(exportSheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(exportSheetName, name, name, exportColumnWidths[col]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, school := range schools {
		row := i + 2 // 第1行是表头
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		values := exportRow(school)
		if err := f.SetSheetRow(exportSheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func exportRow(s *models.School) []interface{} {
	var year interface{}
	if s.EstablishedYear != nil {
		year = *s.EstablishedYear
	}
	return []interface{}{
		s.ID,
		s.Code,
		s.Name,
		s.Subdomain,
		s.PrincipalName,
		s.Email,
		s.Phone,
		year,
		s.SchemaName,
		s.DBName,
		s.DBHost,
		s.DBPort,
		yesNo(s.IsActive),
		yesNo(s.SetupCompleted),
		s.ProvisionAttempts,
		s.CreatedAt.Format(time.RFC3339),
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
