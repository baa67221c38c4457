package persistence

import (
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// RequiredFields lists the columns a create payload must supply: primary
// keys the database does not generate, and NOT NULL columns without a
// default. Timestamp columns filled by gorm are never required.
func RequiredFields(s *schema.Schema) []string {
	var out []string
	for _, f := range s.Fields {
		if f.DBName == "" || f.AutoCreateTime != 0 || f.AutoUpdateTime != 0 {
			continue
		}
		switch {
		case f.PrimaryKey:
			if !f.HasDefaultValue && !f.AutoIncrement {
				out = append(out, f.DBName)
			}
		case f.NotNull && !f.HasDefaultValue:
			out = append(out, f.DBName)
		}
	}
	slices.Sort(out)
	return out
}

// ValidateFields checks fields against the schema: every key must name a
// column and every required column must be present. Keys may use either
// the column name or the Go field name.
func ValidateFields(s *schema.Schema, fields map[string]any) error {
	given := make(map[string]struct{}, len(fields))
	names := make([]string, 0, len(fields))
	for key := range fields {
		f := s.LookUpField(key)
		if f == nil || f.DBName == "" {
			return &UnknownFieldError{Model: s.Name, Field: key, Available: slices.Sorted(slices.Values(s.DBNames))}
		}
		given[f.DBName] = struct{}{}
		names = append(names, key)
	}

	required := RequiredFields(s)
	var missing []string
	for _, name := range required {
		if _, ok := given[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(names)
	return &MissingFieldsError{Model: s.Name, Missing: missing, Required: required, Given: names}
}

// ValidateFieldsForModel parses model's schema through db and runs
// ValidateFields.
func ValidateFieldsForModel(db *gorm.DB, model any, fields map[string]any) error {
	s, err := parseSchema(db, model)
	if err != nil {
		return err
	}
	return ValidateFields(s, fields)
}
