// Package qrcode builds the payload printed as a QR code on member cards.
package qrcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"

	"github.com/trezcool/mpiangona/core/member"
)

var (
	// errors
	ErrEmptyID        = errors.New("qr payload: member id is required")
	ErrInvalidPayload = errors.New("qr payload: no member id found")
)

// Payload is the identity subset of a member encoded on its card.
type Payload struct {
	ID       string
	Nom      string
	Prenom   string
	Fonction string
	Quartier string
}

func PayloadOf(m member.Member) Payload {
	return Payload{
		ID:       m.ID,
		Nom:      m.Nom,
		Prenom:   m.Prenom,
		Fonction: m.FonctionEglise.String,
		Quartier: m.Quartier.String,
	}
}

func (p Payload) fields() map[string]string {
	fields := map[string]string{
		"id":       p.ID,
		"nom":      p.Nom,
		"prenom":   p.Prenom,
		"fonction": p.Fonction,
		"quartier": p.Quartier,
	}
	for k, v := range fields {
		v = strings.TrimSpace(v)
		if v == "" {
			delete(fields, k)
			continue
		}
		fields[k] = norm.NFC.String(v)
	}
	return fields
}

// Encode returns the canonical JSON form of `p`: sorted keys, NFC strings,
// no HTML escaping, empty fields omitted. Equal payloads always encode to the same string.
func Encode(p Payload) (string, error) {
	if strings.TrimSpace(p.ID) == "" {
		return "", ErrEmptyID
	}
	fields := p.fields()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, k); err != nil {
			return "", err
		}
		buf.WriteByte(':')
		if err := writeString(&buf, fields[k]); err != nil {
			return "", err
		}
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return pkgerrors.Wrap(err, "encoding qr payload")
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// Decode extracts the member id from a scanned payload.
// Cards printed before the JSON payload carry the bare member id.
func Decode(data string) (string, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return "", ErrInvalidPayload
	}
	if strings.HasPrefix(data, "{") {
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return "", pkgerrors.Wrap(ErrInvalidPayload, err.Error())
		}
		if id := strings.TrimSpace(p.ID); id != "" {
			return id, nil
		}
		return "", ErrInvalidPayload
	}
	if strings.ContainsAny(data, " \t\n\"{}") {
		return "", ErrInvalidPayload
	}
	return data, nil
}

// MemberFinder looks members up in the live repository.
type MemberFinder interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
}

// Resolve decodes `data` and returns the current state of the member it designates.
func Resolve(ctx context.Context, data string, finder MemberFinder) (member.Member, error) {
	id, err := Decode(data)
	if err != nil {
		return member.Member{}, err
	}
	return finder.GetByID(ctx, id)
}

// Rasterizer renders a payload as a square PNG of `size` pixels.
type Rasterizer interface {
	PNG(payload string, size int) ([]byte, error)
}
