package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-pdf/fpdf"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
)

type ExportKind string

const (
	ExportMenu         ExportKind = "menu"
	ExportShoppingList ExportKind = "shopping_list"
)

const pdfFont = "body"

// Document is a rendered export ready to be sent as a file.
type Document struct {
	Name       string
	Data       []byte
	ArchiveKey string
}

type lineStyle int

const (
	styleTitle lineStyle = iota
	styleHeading
	styleSubheading
	styleText
	styleNote
)

type docLine struct {
	Style lineStyle
	Text  string
}

// ExportService renders plans and shopping lists to PDF. Exports are gated
// by EntitlementLimits.ExportEnabled.
type ExportService struct {
	plans   *PlanService
	catalog *domain.Catalog
	font    []byte
	archive S3API
	bucket  string
}

// NewExportService reads the UTF-8 font at fontPath. Without a font the
// service is disabled. archive may be nil.
func NewExportService(plans *PlanService, catalog *domain.Catalog, fontPath string, archive S3API, bucket string) (*ExportService, error) {
	s := &ExportService{plans: plans, catalog: catalog, archive: archive, bucket: bucket}
	if fontPath == "" {
		return s, nil
	}
	font, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF font: %w", err)
	}
	s.font = font
	return s, nil
}

func (s *ExportService) Enabled() bool {
	return len(s.font) > 0
}

// MenuPDF renders the plan. Dinner macros follow the limits of the owner.
func (s *ExportService) MenuPDF(ctx context.Context, telegramID int64, planID uint) (*Document, error) {
	view, err := s.plans.View(ctx, telegramID, planID)
	if err != nil {
		return nil, err
	}
	if !view.Limits.ExportEnabled {
		return nil, apperrors.NewFeatureLockedError("pdf_export")
	}
	return s.render(ctx, view.Plan, ExportMenu, menuLines(s.catalog, view.Plan, view.Limits))
}

// ShoppingListPDF renders the shopping list, generating it if needed.
func (s *ExportService) ShoppingListPDF(ctx context.Context, telegramID int64, planID uint) (*Document, error) {
	list, plan, err := s.plans.ShoppingList(ctx, telegramID, planID, false)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, plan, ExportShoppingList, shoppingLines(plan, list))
}

func (s *ExportService) render(ctx context.Context, plan *domain.Plan, kind ExportKind, lines []docLine) (*Document, error) {
	if !s.Enabled() {
		return nil, apperrors.NewFeatureLockedError("pdf_font")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(lines[0].Text, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddUTF8FontFromBytes(pdfFont, "", s.font)
	pdf.AddPage()

	for _, l := range lines {
		switch l.Style {
		case styleTitle:
			pdf.SetFont(pdfFont, "", 18)
			pdf.MultiCell(0, 9, l.Text, "", "C", false)
			pdf.Ln(3)
		case styleHeading:
			pdf.Ln(2)
			pdf.SetFont(pdfFont, "", 14)
			pdf.MultiCell(0, 7, l.Text, "B", "L", false)
			pdf.Ln(1)
		case styleSubheading:
			pdf.SetFont(pdfFont, "", 12)
			pdf.MultiCell(0, 6, l.Text, "", "L", false)
		case styleNote:
			pdf.SetFont(pdfFont, "", 9)
			pdf.MultiCell(0, 5, l.Text, "", "L", false)
		default:
			pdf.SetFont(pdfFont, "", 10)
			pdf.MultiCell(0, 5, l.Text, "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("failed to render %s pdf: %w", kind, err))
	}

	doc := &Document{
		Name: fmt.Sprintf("%s_%d.pdf", kind, plan.ID),
		Data: buf.Bytes(),
	}
	doc.ArchiveKey = s.archiveDocument(ctx, plan, kind, doc.Data)
	return doc, nil
}

// ArchiveKey is the object key of an archived export.
func ArchiveKey(plan *domain.Plan, kind ExportKind) string {
	return fmt.Sprintf("plans/%d/%d/%s.pdf", plan.UserID, plan.ID, kind)
}

// archiveDocument stores data in the archive bucket. Failures are logged
// and the export still succeeds.
func (s *ExportService) archiveDocument(ctx context.Context, plan *domain.Plan, kind ExportKind, data []byte) string {
	if s.archive == nil || s.bucket == "" {
		return ""
	}
	key := ArchiveKey(plan, kind)
	_, err := s.archive.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		logger.WithContext(ctx).Warn("Failed to archive export", "plan_id", plan.ID, "key", key, "error", err)
		return ""
	}
	return key
}

func menuLines(catalog *domain.Catalog, plan *domain.Plan, limits domain.EntitlementLimits) []docLine {
	lines := []docLine{
		{styleTitle, "Меню питания: " + stripLabel(catalog.DietLabel(plan.Diet))},
		{styleNote, fmt.Sprintf("Человек: %d, дней: %d", plan.PartySize, plan.DayCount)},
	}
	var slots []string
	for _, slot := range plan.Slots() {
		slots = append(slots, fmt.Sprintf("%s %s", catalog.SlotName(slot), plan.MealTimes[slot]))
	}
	if len(slots) > 0 {
		lines = append(lines, docLine{styleNote, "Приёмы пищи: " + strings.Join(slots, ", ")})
	}

	for _, day := range plan.Content.SortedDays() {
		label := day.DateLabel
		if label == "" {
			label = fmt.Sprintf("День %d", day.Day)
		}
		if limits.DinnerMacrosVisible && day.DayTotalCalories.Valid {
			label += fmt.Sprintf(" (%s ккал)", day.DayTotalCalories)
		}
		lines = append(lines, docLine{styleHeading, label})

		for _, meal := range day.Meals {
			name := meal.MealName
			if name == "" {
				name = catalog.SlotName(meal.MealType)
			}
			if meal.Time != "" {
				name += " " + meal.Time
			}
			lines = append(lines, docLine{styleSubheading, name})

			visible := limits.MacrosVisible(meal.MealType)
			for _, dish := range meal.Dishes {
				lines = append(lines, docLine{styleText, "• " + dish.Name})
				if dish.Description != "" {
					lines = append(lines, docLine{styleNote, "  " + dish.Description})
				}
				for _, ing := range dish.Ingredients {
					lines = append(lines, docLine{styleNote, "  - " + ingredientText(ing.Name, ing.Amount, ing.Unit)})
				}
				if visible {
					if macros := macrosText(dish); macros != "" {
						lines = append(lines, docLine{styleNote, "  " + macros})
					}
				}
			}
		}
	}
	if !limits.DinnerMacrosVisible {
		lines = append(lines, docLine{styleNote, "Калорийность ужина доступна в PRO"})
	}
	return lines
}

func shoppingLines(plan *domain.Plan, list *domain.ShoppingList) []docLine {
	lines := []docLine{
		{styleTitle, "Список покупок"},
		{styleNote, fmt.Sprintf("Меню #%d, человек: %d, дней: %d, позиций: %d",
			plan.ID, plan.PartySize, plan.DayCount, list.TotalItems)},
	}
	for _, c := range list.NonEmptyCategories() {
		lines = append(lines, docLine{styleHeading, c.Name})
		for _, item := range c.Items {
			lines = append(lines, docLine{styleText, "□ " + ingredientText(item.Name, item.TotalAmount, item.Unit)})
		}
	}
	return lines
}

func ingredientText(name string, amount domain.Amount, unit string) string {
	if !amount.Valid {
		return name
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", name, amount, unit))
}

// macrosText formats the calorie and macro figures of a dish, skipping
// unknown values.
func macrosText(d domain.Dish) string {
	var parts []string
	if d.Calories.Valid {
		parts = append(parts, fmt.Sprintf("%s ккал", d.Calories))
	}
	for _, m := range []struct {
		label string
		v     domain.Amount
	}{{"Б", d.Proteins}, {"Ж", d.Fats}, {"У", d.Carbs}} {
		if m.v.Valid {
			parts = append(parts, fmt.Sprintf("%s %sг", m.label, m.v))
		}
	}
	return strings.Join(parts, ", ")
}

// stripLabel drops the leading emoji of a catalog label; the PDF font has no
// glyphs for it.
func stripLabel(label string) string {
	if i := strings.IndexByte(label, ' '); i > 0 && !isLetterStart(label) {
		return label[i+1:]
	}
	return label
}

func isLetterStart(s string) bool {
	for _, r := range s {
		return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= 'А' && r <= 'я') || r == 'Ё' || r == 'ё'
	}
	return false
}
