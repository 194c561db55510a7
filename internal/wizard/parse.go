package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	"github.com/vladimiradmaev/menupro-bot/internal/utils"
)

// PlaceholderName names a skipped profile.
func PlaceholderName(index int) string {
	return fmt.Sprintf("Человек %d", index+1)
}

// ParseEater reads "name, age, notes". A second field that is an integer is
// the age and is kept only when positive; any other second field starts the
// notes.
func ParseEater(text string, index int) domain.Eater {
	var parts []string
	for _, p := range strings.Split(text, ",") {
		parts = append(parts, strings.TrimSpace(p))
	}

	eater := domain.Eater{Name: parts[0]}
	if eater.Name == "" {
		eater.Name = PlaceholderName(index)
	}

	rest := parts[1:]
	if len(rest) > 0 {
		if age, err := strconv.Atoi(rest[0]); err == nil {
			if age > 0 {
				eater.Age = &age
			}
			rest = rest[1:]
		}
	}

	var notes []string
	for _, p := range rest {
		if p != "" {
			notes = append(notes, p)
		}
	}
	eater.Notes = strings.Join(notes, ", ")
	return eater
}

// ParseMealTimes reads "<slot> HH:MM" pairs separated by commas, semicolons
// or new lines. Pairs with an unknown slot or a bad time are skipped.
func ParseMealTimes(catalog *domain.Catalog, text string) map[domain.Slot]string {
	out := make(map[domain.Slot]string)
	pairs := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	for _, pair := range pairs {
		fields := strings.Fields(pair)
		if len(fields) < 2 {
			continue
		}
		clock, ok := utils.NormalizeClock(strings.Replace(fields[len(fields)-1], ".", ":", 1))
		if !ok {
			continue
		}
		alias := strings.TrimRight(strings.Join(fields[:len(fields)-1], " "), " -:")
		if slot, ok := catalog.SlotByAlias(alias); ok {
			out[slot] = clock
		}
	}
	return out
}
