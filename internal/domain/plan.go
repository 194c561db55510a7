package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
)

// UserAddedDescription marks dishes entered by hand through the editor.
const UserAddedDescription = "Добавлено пользователем"

// Amount is a nullable number. It accepts JSON numbers, numeric strings
// (with a dot or comma separator) and null; anything else decodes as null.
type Amount struct {
	Value float64
	Valid bool
}

func NewAmount(v float64) Amount {
	return Amount{Value: v, Valid: true}
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*a = NewAmount(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*a = NewAmount(v)
		}
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

// String formats the amount without trailing zeros, or "" when null.
func (a Amount) String() string {
	if !a.Valid {
		return ""
	}
	return strconv.FormatFloat(a.Value, 'f', -1, 64)
}

type Ingredient struct {
	Name   string `json:"name"`
	Amount Amount `json:"amount"`
	Unit   string `json:"unit"`
}

type Dish struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Ingredients []Ingredient `json:"ingredients"`
	Calories    Amount       `json:"calories_per_serving"`
	Proteins    Amount       `json:"proteins"`
	Fats        Amount       `json:"fats"`
	Carbs       Amount       `json:"carbs"`
}

type Meal struct {
	MealType      Slot   `json:"meal_type"`
	MealName      string `json:"meal_name"`
	Time          string `json:"time"`
	Dishes        []Dish `json:"dishes"`
	TotalCalories Amount `json:"total_calories"`
}

type Day struct {
	Day              int    `json:"day"`
	DateLabel        string `json:"date_label"`
	Meals            []Meal `json:"meals"`
	DayTotalCalories Amount `json:"day_total_calories"`
}

// PlanContent is the days → meals → dishes tree of a plan.
type PlanContent struct {
	Days []Day `json:"days"`
}

// ContentExpectation is what a generated plan must agree with.
type ContentExpectation struct {
	DayCount int
	Slots    []Slot
}

// SortedDays returns the days ordered by their day index, whatever the
// stored order.
func (c *PlanContent) SortedDays() []Day {
	days := make([]Day, len(c.Days))
	copy(days, c.Days)
	sort.SliceStable(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return days
}

// DayIndices returns the day indices in ascending order.
func (c *PlanContent) DayIndices() []int {
	out := make([]int, 0, len(c.Days))
	for _, d := range c.SortedDays() {
		out = append(out, d.Day)
	}
	return out
}

// DayByIndex finds a day by its 1-based day index.
func (c *PlanContent) DayByIndex(day int) (*Day, bool) {
	for i := range c.Days {
		if c.Days[i].Day == day {
			return &c.Days[i], true
		}
	}
	return nil, false
}

// Meal returns the meal at a 1-based display position of a day.
func (c *PlanContent) Meal(day, meal int) (*Meal, error) {
	d, ok := c.DayByIndex(day)
	if !ok {
		return nil, apperrors.NewNotFoundError("day", day)
	}
	if meal < 1 || meal > len(d.Meals) {
		return nil, apperrors.NewNotFoundError("meal", meal).WithContext("day", day)
	}
	return &d.Meals[meal-1], nil
}

// ReplaceDish overwrites the dish at (day, meal, dish) with a user-added dish.
// Meal and dish positions are 1-based. The previous dish is discarded.
func (c *PlanContent) ReplaceDish(day, meal, dish int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.NewValidationError("EMPTY_DISH_NAME", "dish name must not be empty")
	}
	m, err := c.Meal(day, meal)
	if err != nil {
		return err
	}
	if dish < 1 || dish > len(m.Dishes) {
		return apperrors.NewNotFoundError("dish", dish).WithContext("day", day).WithContext("meal", meal)
	}
	m.Dishes[dish-1] = Dish{
		Name:        name,
		Description: UserAddedDescription,
		Ingredients: []Ingredient{},
	}
	return nil
}

// DishRef locates a dish inside a plan.
type DishRef struct {
	Day  int
	Slot Slot
	Dish Dish
}

// Dishes lists every dish in day order, then stored meal order.
func (c *PlanContent) Dishes() []DishRef {
	var out []DishRef
	for _, d := range c.SortedDays() {
		for _, m := range d.Meals {
			for _, dish := range m.Dishes {
				out = append(out, DishRef{Day: d.Day, Slot: m.MealType, Dish: dish})
			}
		}
	}
	return out
}

// Validate checks the structural invariants of the plan against exp.
func (c *PlanContent) Validate(exp ContentExpectation) error {
	allowed := make(map[Slot]bool, len(exp.Slots))
	for _, s := range exp.Slots {
		allowed[s] = true
	}

	seen := make(map[int]bool, len(c.Days))
	for _, d := range c.Days {
		if d.Day < 1 {
			return fmt.Errorf("day index %d is not positive", d.Day)
		}
		if seen[d.Day] {
			return fmt.Errorf("day index %d is duplicated", d.Day)
		}
		seen[d.Day] = true
		for _, m := range d.Meals {
			if len(allowed) > 0 && !allowed[m.MealType] {
				return fmt.Errorf("day %d: meal slot %q was not requested", d.Day, m.MealType)
			}
		}
	}
	for i := 1; i <= len(c.Days); i++ {
		if !seen[i] {
			return fmt.Errorf("day index %d is missing", i)
		}
	}
	if exp.DayCount > 0 && len(c.Days) != exp.DayCount {
		return fmt.Errorf("expected %d days, got %d", exp.DayCount, len(c.Days))
	}
	return nil
}

type rawContent struct {
	Days *[]rawDay `json:"days"`
}

type rawDay struct {
	Day              *int       `json:"day"`
	DateLabel        string     `json:"date_label"`
	Meals            *[]rawMeal `json:"meals"`
	DayTotalCalories Amount     `json:"day_total_calories"`
}

type rawMeal struct {
	MealType      *string    `json:"meal_type"`
	MealName      string     `json:"meal_name"`
	Time          string     `json:"time"`
	Dishes        *[]rawDish `json:"dishes"`
	TotalCalories Amount     `json:"total_calories"`
}

type rawDish struct {
	Name        *string      `json:"name"`
	Description string       `json:"description"`
	Ingredients []Ingredient `json:"ingredients"`
	Calories    Amount       `json:"calories_per_serving"`
	Proteins    Amount       `json:"proteins"`
	Fats        Amount       `json:"fats"`
	Carbs       Amount       `json:"carbs"`
}

// DecodePlanContent parses generated JSON into a PlanContent and validates it.
// Any failure is a generation format error; nothing is partially accepted.
func DecodePlanContent(data []byte, exp ContentExpectation) (*PlanContent, error) {
	content, err := decodePlanContent(data)
	if err == nil {
		err = content.Validate(exp)
	}
	if err != nil {
		return nil, apperrors.NewGenerationFormatError(err, "plan")
	}
	return content, nil
}

func decodePlanContent(data []byte) (*PlanContent, error) {
	var raw rawContent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if raw.Days == nil {
		return nil, fmt.Errorf("missing days list")
	}

	known := make(map[Slot]bool)
	for _, s := range AllSlots() {
		known[s] = true
	}

	content := &PlanContent{Days: make([]Day, 0, len(*raw.Days))}
	for i, rd := range *raw.Days {
		if rd.Day == nil {
			return nil, fmt.Errorf("days[%d]: missing day index", i)
		}
		if rd.Meals == nil {
			return nil, fmt.Errorf("days[%d]: missing meals list", i)
		}
		day := Day{
			Day:              *rd.Day,
			DateLabel:        rd.DateLabel,
			Meals:            make([]Meal, 0, len(*rd.Meals)),
			DayTotalCalories: rd.DayTotalCalories,
		}
		if day.DateLabel == "" {
			day.DateLabel = fmt.Sprintf("День %d", day.Day)
		}

		for j, rm := range *rd.Meals {
			if rm.MealType == nil {
				return nil, fmt.Errorf("days[%d].meals[%d]: missing meal_type", i, j)
			}
			slot := Slot(strings.ToLower(strings.TrimSpace(*rm.MealType)))
			if !known[slot] {
				return nil, fmt.Errorf("days[%d].meals[%d]: unknown meal_type %q", i, j, *rm.MealType)
			}
			if rm.Dishes == nil {
				return nil, fmt.Errorf("days[%d].meals[%d]: missing dishes list", i, j)
			}
			meal := Meal{
				MealType:      slot,
				MealName:      rm.MealName,
				Time:          rm.Time,
				Dishes:        make([]Dish, 0, len(*rm.Dishes)),
				TotalCalories: rm.TotalCalories,
			}

			for k, rdish := range *rm.Dishes {
				if rdish.Name == nil || strings.TrimSpace(*rdish.Name) == "" {
					return nil, fmt.Errorf("days[%d].meals[%d].dishes[%d]: missing name", i, j, k)
				}
				ingredients := rdish.Ingredients
				if ingredients == nil {
					ingredients = []Ingredient{}
				}
				meal.Dishes = append(meal.Dishes, Dish{
					Name:        strings.TrimSpace(*rdish.Name),
					Description: rdish.Description,
					Ingredients: ingredients,
					Calories:    rdish.Calories,
					Proteins:    rdish.Proteins,
					Fats:        rdish.Fats,
					Carbs:       rdish.Carbs,
				})
			}
			day.Meals = append(day.Meals, meal)
		}
		content.Days = append(content.Days, day)
	}
	return content, nil
}

type ShoppingItem struct {
	Name        string `json:"name"`
	TotalAmount Amount `json:"total_amount"`
	Unit        string `json:"unit"`
}

type ShoppingCategory struct {
	Name  string         `json:"name"`
	Items []ShoppingItem `json:"items"`
}

// ShoppingList is the aggregated ingredient list derived from a plan.
type ShoppingList struct {
	Categories []ShoppingCategory `json:"categories"`
	TotalItems int                `json:"total_items"`
}

// NonEmptyCategories skips categories without items.
func (l *ShoppingList) NonEmptyCategories() []ShoppingCategory {
	var out []ShoppingCategory
	for _, c := range l.Categories {
		if len(c.Items) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// DecodeShoppingList parses a generated shopping list. The item total is
// recounted rather than trusted.
func DecodeShoppingList(data []byte) (*ShoppingList, error) {
	var raw struct {
		Categories *[]struct {
			Name  string `json:"name"`
			Items *[]struct {
				Name        *string `json:"name"`
				TotalAmount Amount  `json:"total_amount"`
				Unit        string  `json:"unit"`
			} `json:"items"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.NewGenerationFormatError(fmt.Errorf("decode shopping list: %w", err), "shopping_list")
	}
	if raw.Categories == nil {
		return nil, apperrors.NewGenerationFormatError(fmt.Errorf("missing categories list"), "shopping_list")
	}

	list := &ShoppingList{}
	for i, rc := range *raw.Categories {
		category := ShoppingCategory{Name: rc.Name, Items: []ShoppingItem{}}
		if rc.Items != nil {
			for j, ri := range *rc.Items {
				if ri.Name == nil || strings.TrimSpace(*ri.Name) == "" {
					return nil, apperrors.NewGenerationFormatError(
						fmt.Errorf("categories[%d].items[%d]: missing name", i, j), "shopping_list")
				}
				category.Items = append(category.Items, ShoppingItem{
					Name:        strings.TrimSpace(*ri.Name),
					TotalAmount: ri.TotalAmount,
					Unit:        ri.Unit,
				})
			}
		}
		list.TotalItems += len(category.Items)
		list.Categories = append(list.Categories, category)
	}
	return list, nil
}
