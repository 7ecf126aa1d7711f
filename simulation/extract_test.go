package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	doc := `[[{"type":"CALL","to":"0xc0ffeefeed8b9d271445cf5d1d24d74d2ca4235e","value":"0x12a05f200","calls":[]}]]`

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "plain document",
			raw:  doc,
			want: doc,
		},
		{
			name: "leading warnings and trailing noise",
			raw:  "Warning: This is a nightly build of Foundry.\n" + doc + "\nDone in 0.3s\n",
			want: doc,
		},
		{
			name: "bracketed log prefix is skipped",
			raw:  "[WARN] deprecated flag\n" + doc,
			want: doc,
		},
		{
			name: "partial duplication after the document",
			raw:  doc + doc[:40],
			want: doc,
		},
		{
			name: "object document",
			raw:  `note: {"result":{"to":"0x01","value":"0x1"}} trailing`,
			want: `{"result":{"to":"0x01","value":"0x1"}}`,
		},
		{
			name: "brackets inside strings",
			raw:  `xx {"error":"bad ] input {","escaped":"a \" ] b"} yy`,
			want: `{"error":"bad ] input {","escaped":"a \" ] b"}`,
		},
		{
			name:    "truncated document",
			raw:     "prefix " + doc[:len(doc)-3],
			wantErr: true,
		},
		{
			name:    "empty input",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "only prose",
			raw:     "Error: connection refused",
			wantErr: true,
		},
		{
			name:    "balanced but invalid",
			raw:     "[not json] and {also: not json}",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON([]byte(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoPayload)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestExtractJSONNeverReturnsNestedPartOfTruncatedDocument(t *testing.T) {
	// the inner object is complete, the outer array is not
	raw := `[[{"to":"0x01","value":"0x5"}`
	got, err := ExtractJSON([]byte(raw))
	assert.ErrorIs(t, err, ErrNoPayload)
	assert.Nil(t, got)
}
