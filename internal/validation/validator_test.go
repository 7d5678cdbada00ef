package validation_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/mtgdb/mtgdb-server/internal/errors"
	"github.com/mtgdb/mtgdb-server/internal/id"
	"github.com/mtgdb/mtgdb-server/internal/validation"
)

type searchRequest struct {
	Query string `query:"q" validate:"required,max=20"`
	Lang  string `query:"lang" validate:"omitempty,language"`
	Limit int    `query:"limit" validate:"gte=0,lte=100"`
}

type cardRequest struct {
	ID string `path:"id" validate:"required,cardid"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(searchRequest{Query: "name:bolt", Lang: "DE", Limit: 10}))
	assert.NoError(t, v.Validate(searchRequest{Query: "name:bolt"}))
	assert.NoError(t, v.Validate(cardRequest{ID: "6ba7b8109dad11d180b400c04fd430c8"}))
}

func TestValidator_AcceptsPrintingIDs(t *testing.T) {
	v := validation.New()

	for _, f := range []id.Fields{
		{SetCode: "LEA", Upstream: "a1", Number: "161", Name: "Lightning Bolt"},
		{SetCode: "tm10", Number: "1", Name: "Goblin", Token: true},
	} {
		assert.NoError(t, v.Validate(cardRequest{ID: id.Printing(f, 0)}))
		assert.NoError(t, v.Validate(cardRequest{ID: id.Printing(f, 3)}))
	}
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       any
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing query",
			req:       searchRequest{},
			wantField: "q",
			wantMsg:   "is required",
		},
		{
			name:      "query too long",
			req:       searchRequest{Query: "name:\"a very long query string\""},
			wantField: "q",
			wantMsg:   "must not exceed 20 characters",
		},
		{
			name:      "unsupported language",
			req:       searchRequest{Query: "bolt", Lang: "xx"},
			wantField: "lang",
			wantMsg:   "must be one of: en ru de fr it es pt jp kr cn tw",
		},
		{
			name:      "limit out of range",
			req:       searchRequest{Query: "bolt", Limit: 101},
			wantField: "limit",
			wantMsg:   "must be less than or equal to 100",
		},
		{
			name:      "malformed card id",
			req:       cardRequest{ID: "lea-bolt"},
			wantField: "id",
			wantMsg:   "must be a card id",
		},
		{
			name:      "dashed card id",
			req:       cardRequest{ID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
			wantField: "id",
			wantMsg:   "must be a card id",
		},
		{
			name:      "uppercase card id",
			req:       cardRequest{ID: "6BA7B8109DAD11D180B400C04FD430C8"},
			wantField: "id",
			wantMsg:   "must be a card id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.ErrorIs(t, err, domainerrors.ErrValidation)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField])
		})
	}
}
