// Package export renders stored diet plans as printable documents.
package export

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"medidiet/internal/diet"

	"github.com/go-pdf/fpdf"
)

const (
	documentTitle = "MediDiet – Weekly Diet Plan"
	footerNote    = "This meal plan is for informational purposes only. Please consult with a healthcare professional for personalized advice."
	noPrecautions = "No specific precautions."
	bullet        = "•"
)

type blockKind int

const (
	blockTitle blockKind = iota
	blockSubtitle
	blockSection
	blockDay
	blockMeal
	blockItem
	blockLine
	blockSmall
	blockNote
)

// block is one line of the document before it is laid out on pages.
type block struct {
	kind blockKind
	text string
}

// FileName is the download name for a plan owned by ownerName.
func FileName(ownerName string) string {
	return "DietPlan_" + strings.Join(strings.Fields(ownerName), "_") + ".pdf"
}

// WritePlanPDF writes the plan as a PDF document to w.
func WritePlanPDF(w io.Writer, ownerName string, data diet.PlanData, generatedAt time.Time) error {
	if data.Weekly == nil && data.Legacy == nil {
		return errors.New("plan has no content")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle("MediDiet Weekly Diet Plan", true)
	pdf.SetCreator("MediDiet", true)
	pdf.AliasNbPages("")

	// Core fonts are cp1252; the bullet and dash need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 7)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.AddPage()

	for _, b := range layout(ownerName, data, generatedAt) {
		render(pdf, tr, b)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

// layout lists the document content in reading order.
func layout(ownerName string, data diet.PlanData, generatedAt time.Time) []block {
	blocks := []block{
		{blockTitle, documentTitle},
		{blockSubtitle, "Generated on: " + generatedAt.Format("02 Jan 2006")},
		{blockSection, "Diet Plan Details"},
		{blockLine, "User: " + ownerName},
		{blockLine, "Calories per day: " + strconv.FormatFloat(data.CaloriesPerDay(), 'f', -1, 64) + " kcal"},
		{blockLine, "Type: " + data.VegOrNonVeg()},
	}

	if data.Weekly != nil {
		for i, key := range diet.DayKeys {
			day, ok := data.Weekly.WeeklyPlan[key]
			if !ok {
				continue
			}
			blocks = append(blocks, block{blockDay, fmt.Sprintf("DAY %d", i+1)})
			for _, slot := range diet.MealSlots {
				blocks = appendMeal(blocks, slot.Label, day.Meal(slot.Key))
			}
		}
	} else {
		blocks = append(blocks, block{blockDay, "DAILY MEALS"})
		for _, slot := range diet.LegacyMealSlots {
			blocks = appendMeal(blocks, slot.Label, data.Legacy.DailyMeals.Meal(slot.Key))
		}
	}

	blocks = append(blocks, block{blockSection, "Precautions"})
	if precautions := data.Precautions(); len(precautions) > 0 {
		for _, p := range precautions {
			blocks = append(blocks, block{blockItem, p})
		}
	} else {
		blocks = append(blocks, block{blockItem, noPrecautions})
	}

	disclaimer := data.Disclaimer()
	if disclaimer == "" {
		disclaimer = "N/A"
	}
	blocks = append(blocks,
		block{blockSection, "Disclaimer"},
		block{blockSmall, disclaimer},
		block{blockNote, footerNote},
	)
	return blocks
}

func appendMeal(blocks []block, label string, items []string) []block {
	if len(items) == 0 {
		return blocks
	}
	blocks = append(blocks, block{blockMeal, label + ":"})
	for _, item := range items {
		blocks = append(blocks, block{blockItem, item})
	}
	return blocks
}

func render(pdf *fpdf.Fpdf, tr func(string) string, b block) {
	switch b.kind {
	case blockTitle:
		pdf.SetFont("Helvetica", "B", 20)
		pdf.CellFormat(0, 10, tr(b.text), "", 1, "C", false, 0, "")
	case blockSubtitle:
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(b.text), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	case blockSection:
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "BU", 12)
		pdf.CellFormat(0, 7, tr(b.text), "", 1, "L", false, 0, "")
	case blockDay:
		// keep a day heading with at least its first meal
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "BU", 14)
		pdf.CellFormat(0, 8, tr(b.text), "", 1, "L", false, 0, "")
	case blockMeal:
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, tr(b.text), "", 1, "L", false, 0, "")
	case blockItem:
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetX(pdf.GetX() + 4)
		pdf.MultiCell(0, 5, tr(bullet+" "+b.text), "", "L", false)
	case blockLine:
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(b.text), "", 1, "L", false, 0, "")
	case blockSmall:
		pdf.SetFont("Helvetica", "", 8)
		pdf.MultiCell(0, 4, tr(b.text), "", "J", false)
	case blockNote:
		pdf.Ln(5)
		pdf.SetFont("Helvetica", "", 7)
		pdf.SetTextColor(102, 102, 102)
		pdf.MultiCell(0, 4, tr(b.text), "", "C", false)
		pdf.SetTextColor(0, 0, 0)
	}
}
