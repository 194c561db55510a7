package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vladimiradmaev/menupro-bot/internal/domain"
)

const planSchemaExample = `{
  "days": [
    {
      "day": 1,
      "date_label": "День 1",
      "meals": [
        {
          "meal_type": "breakfast",
          "meal_name": "Завтрак",
          "time": "08:00",
          "dishes": [
            {
              "name": "Название блюда",
              "description": "Краткое описание",
              "ingredients": [
                {"name": "Ингредиент", "amount": 100, "unit": "г"}
              ],
              "calories_per_serving": 350,
              "proteins": 15,
              "fats": 10,
              "carbs": 45
            }
          ],
          "total_calories": 350
        }
      ],
      "day_total_calories": 1800
    }
  ]
}`

func planPrompt(catalog *domain.Catalog, req domain.GenerationRequest, limits domain.EntitlementLimits) string {
	var eaters []string
	for i, e := range req.Eaters {
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("Человек %d", i+1)
		}
		line := "- " + name
		if e.Age != nil {
			line += fmt.Sprintf(", возраст %d", *e.Age)
		}
		if e.Notes != "" {
			line += ", предпочтения: " + e.Notes
		}
		eaters = append(eaters, line)
	}

	var slots, times []string
	for _, s := range req.Slots {
		slots = append(slots, string(s))
		times = append(times, fmt.Sprintf("  - %s (%s): %s", s, catalog.SlotName(s), req.Times[s]))
	}

	calorieRule := "Указывай калорийность и БЖУ всех блюд"
	if !limits.DinnerMacrosVisible {
		calorieRule = "Для ужина НЕ указывай калорийность и БЖУ (поставь null)"
	}

	return fmt.Sprintf(`Ты профессиональный диетолог и шеф-повар. Составь подробное меню питания.

ПАРАМЕТРЫ:
- Режим питания: %s
- Количество людей: %d
- Количество дней: %d
- Приёмы пищи (значения meal_type): %s
- Время приёмов пищи:
%s

ЕДОКИ:
%s

ТРЕБОВАНИЯ:
1. Ровно %d дней, поле day от 1 до %d, в каждом дне все перечисленные приёмы пищи и только они
2. Для каждого блюда укажи название, ингредиенты с граммовкой на %d чел., калорийность порции
3. Учитывай возраст и предпочтения едоков
4. Блюда должны быть разнообразными и не повторяться
5. %s

Верни СТРОГО валидный JSON следующей структуры (без markdown, только JSON):
%s`,
		catalog.DietDescription(req.Diet), req.PartySize, req.DayCount,
		strings.Join(slots, ", "), strings.Join(times, "\n"),
		strings.Join(eaters, "\n"),
		req.DayCount, req.DayCount, req.PartySize, calorieRule, planSchemaExample)
}

func shoppingListPrompt(content domain.PlanContent, partySize int) (string, error) {
	menu, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to encode plan: %w", err)
	}
	return fmt.Sprintf(`На основе меню сформируй единый список покупок.

МЕНЮ (JSON):
%s

Количество человек: %d

Задача: собери все ингредиенты из всех блюд, суммируй одинаковые продукты, сгруппируй по категориям.

Верни СТРОГО валидный JSON (без markdown):
{
  "categories": [
    {"name": "Мясо и рыба", "items": [{"name": "Куриная грудка", "total_amount": 1500, "unit": "г"}]},
    {"name": "Овощи и фрукты", "items": []},
    {"name": "Молочные продукты", "items": []},
    {"name": "Крупы и злаки", "items": []},
    {"name": "Масла и соусы", "items": []},
    {"name": "Специи и приправы", "items": []},
    {"name": "Прочее", "items": []}
  ],
  "total_items": 0
}`, menu, partySize), nil
}

func searchQueriesPrompt(dish string) string {
	return fmt.Sprintf(`Для блюда "%s" сгенерируй 3 поисковых запроса для Google, чтобы найти рецепт.
Верни JSON массив строк (без markdown): ["запрос 1", "запрос 2", "запрос 3"]`, dish)
}

const tipPrompt = "Дай один короткий полезный совет по питанию или здоровому образу жизни (2-3 предложения). Совет должен быть научно обоснованным и практичным."

func substitutesPrompt(ingredient, dietDescription string) string {
	return fmt.Sprintf(`Предложи 3 замены для ингредиента "%s" в контексте питания: %s.
Верни JSON (без markdown): {"substitutes": ["вариант1", "вариант2", "вариант3"], "notes": "короткое пояснение"}`,
		ingredient, dietDescription)
}
