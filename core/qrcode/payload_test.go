package qrcode_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mpiangona/core/member"
	"github.com/trezcool/mpiangona/core/qrcode"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name    string
		payload qrcode.Payload
		want    string
		wantErr error
	}{
		{
			name:    "full",
			payload: qrcode.Payload{ID: "m1", Nom: "Rakoto", Prenom: "Jean", Fonction: "Diakona", Quartier: "Tanambao"},
			want:    `{"fonction":"Diakona","id":"m1","nom":"Rakoto","prenom":"Jean","quartier":"Tanambao"}`,
		},
		{
			name:    "empty fields omitted",
			payload: qrcode.Payload{ID: "m1", Nom: "Rakoto", Prenom: " ", Quartier: ""},
			want:    `{"id":"m1","nom":"Rakoto"}`,
		},
		{
			name:    "no html escaping",
			payload: qrcode.Payload{ID: "m1", Nom: "Rakoto & fils <Vatomandry>"},
			want:    `{"id":"m1","nom":"Rakoto & fils <Vatomandry>"}`,
		},
		{
			name:    "unicode normalized",
			payload: qrcode.Payload{ID: "m1", Prenom: "Rene\u0301e"},
			want:    "{\"id\":\"m1\",\"prenom\":\"Ren\u00e9e\"}",
		},
		{name: "missing id", payload: qrcode.Payload{Nom: "Rakoto"}, wantErr: qrcode.ErrEmptyID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := qrcode.Encode(tt.payload)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_Stable(t *testing.T) {
	p := qrcode.Payload{ID: "m1", Nom: "Rakoto", Prenom: "Jean", Fonction: "Mpitandrina", Quartier: "Ambalakininy"}
	first, err := qrcode.Encode(p)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		got, err := qrcode.Encode(p)
		require.NoError(t, err)
		require.Equal(t, first, got)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{name: "json", data: `{"id":"m1","nom":"Rakoto"}`, want: "m1"},
		{name: "json with spaces", data: ` { "nom": "Rakoto", "id": " m1 " } `, want: "m1"},
		{name: "bare id", data: "4f1c9a4e-0000-4000-8000-000000000000", want: "4f1c9a4e-0000-4000-8000-000000000000"},
		{name: "empty", data: "  ", wantErr: true},
		{name: "json without id", data: `{"nom":"Rakoto"}`, wantErr: true},
		{name: "broken json", data: `{"id":`, wantErr: true},
		{name: "free text", data: "Jean Rakoto", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := qrcode.Decode(tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, qrcode.ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type finder map[string]member.Member

func (f finder) GetByID(_ context.Context, id string) (member.Member, error) {
	if m, ok := f[id]; ok {
		return m, nil
	}
	return member.Member{}, member.ErrNotFound
}

func TestResolve(t *testing.T) {
	printed := member.Member{ID: "m1", Nom: "Rakoto", Prenom: "Jean", Quartier: null.StringFrom("Tanambao")}
	current := printed
	current.Quartier = null.StringFrom("Ambalakininy")
	members := finder{"m1": current}

	data, err := qrcode.Encode(qrcode.PayloadOf(printed))
	require.NoError(t, err)

	m, err := qrcode.Resolve(context.Background(), data, members)
	require.NoError(t, err)
	assert.Equal(t, "Ambalakininy", m.Quartier.String, "the live record wins over the printed one")

	_, err = qrcode.Resolve(context.Background(), "m2", members)
	assert.ErrorIs(t, err, member.ErrNotFound)
}
