package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredFields(t *testing.T) {
	db := newSQLite(t)

	s, err := parseSchema(db, &gadget{})
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, RequiredFields(s))

	s, err = parseSchema(db, &membership{})
	require.NoError(t, err)
	assert.Equal(t, []string{"group_id", "role", "user_id"}, RequiredFields(s))
}

func TestValidateFieldsForModel(t *testing.T) {
	db := newSQLite(t)

	tests := []struct {
		name    string
		fields  map[string]any
		missing []string
		unknown string
	}{
		{name: "all present", fields: map[string]any{"user_id": 1, "group_id": "a", "role": "r"}},
		{name: "go field names accepted", fields: map[string]any{"UserID": 1, "GroupID": "a", "Role": "r"}},
		{name: "missing role", fields: map[string]any{"user_id": 1, "group_id": "a"}, missing: []string{"role"}},
		{name: "nothing given", fields: map[string]any{}, missing: []string{"group_id", "role", "user_id"}},
		{name: "unknown column", fields: map[string]any{"team": "x"}, unknown: "team"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFieldsForModel(db, &membership{}, tt.fields)
			switch {
			case tt.unknown != "":
				var unknown *UnknownFieldError
				require.ErrorAs(t, err, &unknown)
				assert.Equal(t, tt.unknown, unknown.Field)
			case tt.missing != nil:
				var missing *MissingFieldsError
				require.ErrorAs(t, err, &missing)
				assert.Equal(t, tt.missing, missing.Missing)
				assert.Equal(t, "membership", missing.Model)
				assert.Contains(t, err.Error(), "missing required fields")
			default:
				assert.NoError(t, err)
			}
		})
	}
}
