package echoapi_test

import (
	"bytes"
	"mime"
	"net/http"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/mpiangona/apps/api/echo"
	"github.com/trezcool/mpiangona/core/card"
	"github.com/trezcool/mpiangona/core/member"
	"github.com/trezcool/mpiangona/core/role"
	qrsvc "github.com/trezcool/mpiangona/services/qr"
)

// flakyRaster fails for the payloads naming one of `bad`.
type flakyRaster struct {
	bad []string
}

func (r flakyRaster) PNG(payload string, size int) ([]byte, error) {
	for _, id := range r.bad {
		if strings.Contains(payload, id) {
			return nil, errors.New("raster failure")
		}
	}
	return qrsvc.NewRasterizer().PNG(payload, size)
}

func Test_cardApi_qrCode(t *testing.T) {
	env := setup(t)
	secretary := env.tokenFor(t, "secretaire", role.Secretaire)
	reader := env.tokenFor(t, "mpiandry", role.Membre)
	m := env.createMember(t, "Rakoto", "Jean", member.Male)

	env.run(t, []httpTest{
		{name: "manage required", path: "/v1/members/" + m.ID + "/qr", token: reader, wantCode: http.StatusForbidden},
		{name: "unknown member", path: "/v1/members/unknown/qr", token: secretary, wantCode: http.StatusNotFound},
	})

	rec := env.do(http.MethodGet, "/v1/members/"+m.ID+"/qr", secretary)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func Test_cardApi_card(t *testing.T) {
	env := setup(t)
	secretary := env.tokenFor(t, "secretaire", role.Secretaire)
	m := env.createMember(t, "Rakoto", "Jean", member.Male)

	rec := env.do(http.MethodGet, "/v1/members/"+m.ID+"/card", secretary)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "carte_Rakoto_Jean.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func Test_cardApi_cardFilename(t *testing.T) {
	env := setup(t)
	secretary := env.tokenFor(t, "secretaire", role.Secretaire)
	m := env.createMember(t, "Rakoto\"\r\nX-Injected: 1", "Éliane", member.Female)

	rec := env.do(http.MethodGet, "/v1/members/"+m.ID+"/card", secretary)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Injected"))

	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, "carte_Rakoto\"\r\nX-Injected: 1_Éliane.pdf", params["filename"])
}

func Test_cardApi_batch(t *testing.T) {
	t.Run("all members", func(t *testing.T) {
		env := setup(t)
		secretary := env.tokenFor(t, "secretaire", role.Secretaire)
		for _, nom := range []string{"Rakoto", "Rasoa", "Rabe"} {
			env.createMember(t, nom, "Test", member.Male)
		}

		rec := env.do(http.MethodPost, "/v1/cards", secretary, []byte(`{}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "3", rec.Header().Get("X-Cards-Total"))
		assert.Empty(t, rec.Header().Get("X-Cards-Skipped"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

		rec = env.do(http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `mpiangona_cards_total{outcome="rendered"} 3`)
	})

	t.Run("no member", func(t *testing.T) {
		env := setup(t)
		secretary := env.tokenFor(t, "secretaire", role.Secretaire)
		rec := env.do(http.MethodPost, "/v1/cards", secretary, []byte(`{}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	t.Run("unknown id", func(t *testing.T) {
		env := setup(t)
		secretary := env.tokenFor(t, "secretaire", role.Secretaire)
		rec := env.do(http.MethodPost, "/v1/cards", secretary, []byte(`{"ids":["unknown"]}`))
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})

	t.Run("skips failed cards", func(t *testing.T) {
		env := setup(t)
		secretary := env.tokenFor(t, "secretaire", role.Secretaire)
		m1 := env.createMember(t, "Rakoto", "Jean", member.Male)
		m2 := env.createMember(t, "Rasoa", "Marie", member.Female)
		m3 := env.createMember(t, "Rabe", "Hery", member.Male)

		// the generator is swapped once the ids are known
		env.c.Deps.Cards = card.NewGenerator(flakyRaster{bad: []string{m2.ID}}, 2, 64)
		app := echoapi.NewServer(env.c.Deps)

		body := marshalObj(t, echoapi.CardsRequest{IDs: []string{m1.ID, m2.ID, m3.ID}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/cards", secretary, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "3", rec.Header().Get("X-Cards-Total"))
		assert.Equal(t, m2.ID, rec.Header().Get("X-Cards-Skipped"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
		assert.Contains(t, strings.Join(env.logger.Entries, "\n"), "WARN: ")
	})

	t.Run("every card failed", func(t *testing.T) {
		env := setup(t)
		secretary := env.tokenFor(t, "secretaire", role.Secretaire)
		m := env.createMember(t, "Rakoto", "Jean", member.Male)

		env.c.Deps.Cards = card.NewGenerator(flakyRaster{bad: []string{m.ID}}, 2, 64)
		app := echoapi.NewServer(env.c.Deps)

		req, rec := newAuthRequest(http.MethodPost, "/v1/cards", secretary, marshalObj(t, echoapi.CardsRequest{IDs: []string{m.ID}}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"error":"could not generate cards","generated":0,"total":1}`, rec.Body.String())
	})
}
