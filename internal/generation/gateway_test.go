package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
)

// MockTextGenerator returns a canned response and records the last call.
type MockTextGenerator struct {
	Response string
	Err      error
	Delay    time.Duration
	Last     Completion
	Calls    int
}

func (m *MockTextGenerator) Name() string { return "mock" }

func (m *MockTextGenerator) Complete(ctx context.Context, req Completion) (string, error) {
	m.Calls++
	m.Last = req
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.Response, m.Err
}

const oneDayPlan = `{"days":[{"day":1,"date_label":"День 1","meals":[
	{"meal_type":"breakfast","meal_name":"Завтрак","time":"08:00","dishes":[{"name":"Овсянка","ingredients":[{"name":"Овсяные хлопья","amount":60,"unit":"г"}],"calories_per_serving":300}],"total_calories":300},
	{"meal_type":"dinner","meal_name":"Ужин","time":"19:00","dishes":[{"name":"Рагу","ingredients":[],"calories_per_serving":null}],"total_calories":null}
]}]}`

func request() domain.GenerationRequest {
	age := 30
	return domain.GenerationRequest{
		Diet:      "vegetarian",
		PartySize: 2,
		DayCount:  1,
		Slots:     []domain.Slot{domain.SlotBreakfast, domain.SlotDinner},
		Times:     map[domain.Slot]string{domain.SlotBreakfast: "08:00", domain.SlotDinner: "19:30"},
		Eaters:    []domain.Eater{{Name: "Anna", Age: &age, Notes: "no nuts"}, {Name: "Person 2"}},
	}
}

func TestGeneratePlan(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"bare json", oneDayPlan},
		{"fenced json", "```json\n" + oneDayPlan + "\n```"},
		{"fence without tag", "```\n" + oneDayPlan + "```"},
		{"chatty prefix", "Конечно! Вот меню:\n" + oneDayPlan + "\nПриятного аппетита"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockTextGenerator{Response: tt.response}
			g := NewGateway(mock, domain.DefaultCatalog(), time.Second)

			content, err := g.GeneratePlan(context.Background(), request(), domain.EntitlementLimits{MaxDays: 3})
			if err != nil {
				t.Fatalf("GeneratePlan() error = %v", err)
			}
			if len(content.Days) != 1 || len(content.Days[0].Meals) != 2 {
				t.Errorf("content = %+v", content)
			}
			if mock.Last.Temperature != 0.7 || mock.Last.MaxTokens != 8000 {
				t.Errorf("budget = %+v", mock.Last)
			}
			for _, want := range []string{"Anna, возраст 30, предпочтения: no nuts", "19:30", "вегетарианское", "НЕ указывай калорийность"} {
				if !strings.Contains(mock.Last.Prompt, want) {
					t.Errorf("prompt missing %q", want)
				}
			}
		})
	}
}

func TestGeneratePlanErrors(t *testing.T) {
	tests := []struct {
		name    string
		mock    *MockTextGenerator
		timeout time.Duration
		want    error
	}{
		{"transport failure", &MockTextGenerator{Err: errors.New("connection refused")}, time.Second, apperrors.ErrGenerationService},
		{"timeout", &MockTextGenerator{Response: oneDayPlan, Delay: time.Second}, 10 * time.Millisecond, apperrors.ErrGenerationService},
		{"empty", &MockTextGenerator{Response: "  "}, time.Second, apperrors.ErrGenerationFormat},
		{"missing days", &MockTextGenerator{Response: `{"menu":[]}`}, time.Second, apperrors.ErrGenerationFormat},
		{"non-integer day", &MockTextGenerator{Response: `{"days":[{"day":"one","meals":[]}]}`}, time.Second, apperrors.ErrGenerationFormat},
		{"prose", &MockTextGenerator{Response: "Извините, не могу."}, time.Second, apperrors.ErrGenerationFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway(tt.mock, domain.DefaultCatalog(), tt.timeout)
			content, err := g.GeneratePlan(context.Background(), request(), domain.EntitlementLimits{MaxDays: 3})
			if content != nil {
				t.Error("expected nil content")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if tt.mock.Calls != 1 {
				t.Errorf("calls = %d, gateway must not retry", tt.mock.Calls)
			}
		})
	}
}

func TestGenerateShoppingList(t *testing.T) {
	mock := &MockTextGenerator{Response: "```json\n" + `{"categories":[{"name":"Крупы и злаки","items":[{"name":"Овсяные хлопья","total_amount":120,"unit":"г"}]}],"total_items":5}` + "\n```"}
	g := NewGateway(mock, domain.DefaultCatalog(), time.Second)

	content, err := domain.DecodePlanContent([]byte(oneDayPlan), domain.ContentExpectation{DayCount: 1})
	if err != nil {
		t.Fatal(err)
	}
	list, err := g.GenerateShoppingList(context.Background(), *content, 2)
	if err != nil {
		t.Fatalf("GenerateShoppingList() error = %v", err)
	}
	if list.TotalItems != 1 {
		t.Errorf("TotalItems = %d", list.TotalItems)
	}
	if mock.Last.Temperature != 0.3 || mock.Last.MaxTokens != 4000 {
		t.Errorf("budget = %+v", mock.Last)
	}
	if !strings.Contains(mock.Last.Prompt, "Овсяные хлопья") || !strings.Contains(mock.Last.Prompt, "Количество человек: 2") {
		t.Error("prompt should embed the plan and party size")
	}
}

func TestSuggestSearchQueries(t *testing.T) {
	mock := &MockTextGenerator{Response: `["борщ рецепт", " ", "борщ классический", "борщ с говядиной", "лишний"]`}
	g := NewGateway(mock, domain.DefaultCatalog(), time.Second)

	queries, err := g.SuggestSearchQueries(context.Background(), "Борщ")
	if err != nil {
		t.Fatalf("SuggestSearchQueries() error = %v", err)
	}
	if len(queries) != 3 || queries[1] != "борщ классический" {
		t.Errorf("queries = %q", queries)
	}

	mock.Response = `{"queries":"nope"}`
	if _, err := g.SuggestSearchQueries(context.Background(), "Борщ"); !errors.Is(err, apperrors.ErrGenerationFormat) {
		t.Errorf("error = %v", err)
	}
}

func TestGenerateTipAndSubstitutes(t *testing.T) {
	mock := &MockTextGenerator{Response: "  Пейте воду перед едой.  "}
	g := NewGateway(mock, domain.DefaultCatalog(), time.Second)

	tip, err := g.GenerateTip(context.Background())
	if err != nil || tip != "Пейте воду перед едой." {
		t.Fatalf("GenerateTip() = %q, %v", tip, err)
	}
	if mock.Last.Temperature != 0.9 || mock.Last.MaxTokens != 200 {
		t.Errorf("tip budget = %+v", mock.Last)
	}

	mock.Response = `{"substitutes":["тофу","нут","чечевица"],"notes":"Источники белка"}`
	sub, err := g.SuggestSubstitutes(context.Background(), "курица", "vegan")
	if err != nil {
		t.Fatalf("SuggestSubstitutes() error = %v", err)
	}
	if len(sub.Substitutes) != 3 || sub.Ingredient != "курица" || sub.Notes == "" {
		t.Errorf("substitution = %+v", sub)
	}
	if !strings.Contains(mock.Last.Prompt, "веганское") {
		t.Error("prompt should carry the diet description")
	}

	mock.Response = `{"substitutes":[]}`
	if _, err := g.SuggestSubstitutes(context.Background(), "курица", "vegan"); !errors.Is(err, apperrors.ErrGenerationFormat) {
		t.Errorf("empty substitutes error = %v", err)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```{\"a\":1}```":         `{"a":1}`,
		"  plain  ":               "plain",
		"```\n[1,2]\n```":         "[1,2]",
	}
	for in, want := range tests {
		if got := stripCodeFence(in); got != want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}
