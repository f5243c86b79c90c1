package profileservice

import (
	"context"
	"io"
	"strconv"
	"strings"

	notificationservice "github.com/Gamequic/ProfileDirectory/pkg/features/notifications/service"
	profilestruct "github.com/Gamequic/ProfileDirectory/pkg/features/profiles/struct"
	"github.com/Gamequic/ProfileDirectory/utils"

	"go.uber.org/zap"
)

const SheetName = "Profiles"

var sheetHeader = []string{"ID", "Name", "Email", "Phone", "Address", "Description", "Interests", "Image"}

// Export writes the whole collection, in display order, as an .xlsx workbook.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	profiles := s.store.List(ctx)

	rows := make([][]string, 0, len(profiles)+1)
	rows = append(rows, sheetHeader)
	for _, p := range profiles {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.Email,
			p.Phone,
			p.Address,
			p.Description,
			p.Interests,
			p.ImageFile,
		})
	}
	return utils.WriteExcelSheet(w, SheetName, rows)
}

// Import adds every valid row of the Profiles sheet as a new profile. Row ids
// in the file are ignored. Invalid rows are reported by their 1-based row number.
func (s *Service) Import(ctx context.Context, r io.Reader) (profilestruct.ImportResult, error) {
	rows, err := utils.ReadExcelSheet(r, SheetName)
	if err != nil {
		return profilestruct.ImportResult{}, err
	}

	result := profilestruct.ImportResult{RejectedRows: map[int]string{}}
	for i, row := range rows {
		if i == 0 || isBlankRow(row) {
			continue
		}
		draft := draftFromRow(row)
		if err := Validate(draft); err != nil {
			result.RejectedRows[i+1] = err.Error()
			continue
		}
		// Rows name files of another profile or of another server.
		if draft.ImageFile, err = s.claim(draft.ImageFile, ""); err != nil {
			s.logger.Warn("Dropping imported image", zap.Int("row", i+1), zap.Error(err))
			draft.ImageFile = ""
		}
		if _, err := s.store.Add(ctx, draft); err != nil {
			s.release(ctx, draft.ImageFile)
			return result, err
		}
		result.Imported++
	}

	if len(result.RejectedRows) == 0 {
		result.RejectedRows = nil
	}
	s.logger.Info("Profiles imported", zap.Int("imported", result.Imported), zap.Int("rejected", len(result.RejectedRows)))
	if result.Imported > 0 {
		s.notify(ctx, notificationservice.ChangeImported, 0)
	}
	return result, nil
}

func draftFromRow(row []string) profilestruct.ProfileDraft {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	return profilestruct.ProfileDraft{
		Name:        cell(1),
		Email:       cell(2),
		Phone:       cell(3),
		Address:     cell(4),
		Description: cell(5),
		Interests:   cell(6),
		ImageFile:   cell(7),
	}
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
