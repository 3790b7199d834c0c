package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/username/customsdash/backend/src/models"
)

// DefaultAliasTable returns the built-in header spellings of every dataset
// revision seen so far. Order is priority: the first alias present wins.
func DefaultAliasTable() models.AliasTable {
	return models.AliasTable{
		models.FieldYear:      {"Viti", "Vit", "Year", "Viti (YYYY)"},
		models.FieldMonth:     {"Muaji", "Muaj", "Month"},
		models.FieldTradeType: {"Lloji", "Lloji i tregtisë", "Tipi", "Trade Type", "Type", "Flow"},
		models.FieldCategory:  {"Kategoria", "Kategori", "Category", "Product Category"},
		models.FieldValue: {
			"Vlera (€)", "Vlera (EUR)", "Vlera (Euro)", "Vlera (Lekë)", "Vlera (ALL)", "Vlera",
			"Value (€)", "Value (EUR)", "Value",
		},
		models.FieldQuantity: {"Sasia (kg)", "Sasia (ton)", "Sasia", "Quantity (kg)", "Quantity"},
	}
}

// LoadAliasTable reads a JSON object of field name → alias list. Fields missing
// from the file keep their built-in aliases; an empty path returns the
// defaults.
func LoadAliasTable(filePath string) (models.AliasTable, error) {
	table := DefaultAliasTable()
	if filePath == "" {
		return table, nil
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias table file '%s': %w", filePath, err)
	}

	var raw map[string][]string
	if err := json.Unmarshal(fileData, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alias table from '%s': %w", filePath, err)
	}

	for name, aliases := range raw {
		field, ok := models.ParseField(name)
		if !ok {
			return nil, fmt.Errorf("alias table '%s': unknown canonical field %q", filePath, name)
		}
		if len(aliases) == 0 {
			continue
		}
		table[field] = append([]string(nil), aliases...)
	}
	return table, nil
}
