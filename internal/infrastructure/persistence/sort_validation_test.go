package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns ASC", "", "ASC"},
		{"ASC uppercase returns ASC", "ASC", "ASC"},
		{"DESC uppercase returns DESC", "DESC", "DESC"},
		{"desc lowercase returns DESC", "desc", "DESC"},
		{"invalid value returns ASC", "INVALID", "ASC"},
		{"sql injection attempt returns ASC", "DESC; DROP TABLE users;--", "ASC"},
		{"whitespace around desc returns DESC", "  desc  ", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	allowed := map[string]bool{"id": true, "handle": true}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns default", "", "id"},
		{"valid field returns field", "handle", "handle"},
		{"invalid field returns default", "password", "id"},
		{"injection attempt returns default", "id; DROP TABLE profiles;--", "id"},
		{"case sensitive", "HANDLE", "id"},
		{"whitespace around valid field", "  handle ", "handle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, allowed, "id"))
		})
	}
}
